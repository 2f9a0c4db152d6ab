// z21probe is a standalone discovery probe, in the spirit of the teacher's
// flag-based test_pkg tool: no cobra, no config file, just enough flags to
// broadcast LAN_GET_HWINFO and print whoever answers.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/keskad/z21/pkgs/discovery"
)

func main() {
	var (
		timeout = flag.Duration("timeout", 3*time.Second, "How long to wait for responses")
	)
	flag.Parse()

	found, err := discovery.Query(*timeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "discovery failed:", err)
		os.Exit(1)
	}
	if len(found) == 0 {
		fmt.Println("no stations found")
		return
	}
	for _, f := range found {
		fmt.Printf("%s\t%s\tfw %s\n", f.IP, f.HardwareInfo.Type, f.HardwareInfo.Firmware)
	}
}
