package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/dirtcrusher/cansim/can"
)

var idColor = color.New(color.FgCyan)

// printFrame writes one frame in candump-like form:
//
//	vcan0  123  [3]  01 02 03
func printFrame(w io.Writer, iface string, f can.Frame) {
	id := fmt.Sprintf("%03X", f.ID)
	if f.IDE {
		id = fmt.Sprintf("%08X", f.ID)
	}
	suffix := ""
	switch {
	case f.ERR:
		suffix = "  ERR"
	case f.RTR:
		suffix = "  RTR"
	}
	fmt.Fprintf(w, "  %-8s %s  [%d]  % X%s\n", iface, idColor.Sprint(id), f.DLC, f.Data[:f.DLC], suffix)
}
