package commands

import "github.com/fatih/color"

// printOK and printFail give quarantine/snapshot/index progress output
// a consistent colored status prefix, grounded on the sibling CLI's
// use of fatih/color for the same purpose.
func printOK(format string, args ...any) {
	color.New(color.FgGreen).Printf("ok  ")
	colorPrintf(format, args...)
}

func printFail(format string, args ...any) {
	color.New(color.FgRed).Printf("fail")
	colorPrintf(format, args...)
}

func colorPrintf(format string, args ...any) {
	color.New(color.Reset).Printf(" "+format+"\n", args...)
}
