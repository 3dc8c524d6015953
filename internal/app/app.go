package app

import (
	"fmt"
	"io"
	"strings"
)

// Run dispatches one CLI invocation. Exit codes: 0 success, 1 runtime
// failure, 2 usage error.
func Run(args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		writeUsage(out)
		return 2
	}

	parsedArgs, globals, err := splitGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(errOut, err.Error())
		writeUsage(errOut)
		return 2
	}
	args = parsedArgs
	if len(args) == 0 {
		writeUsage(out)
		return 2
	}

	if isVersionCommand(args[0]) {
		fmt.Fprintln(out, VersionString())
		return 0
	}

	cmd := strings.ToLower(args[0])
	switch cmd {
	case "scan":
		return runScan(globals, args[1:], out, errOut)
	case "partition":
		return runPartition(globals, args[1:], out, errOut)
	case "analyze":
		return runAnalyze(globals, args[1:], out, errOut)
	case "status":
		return runStatus(globals, args[1:], out, errOut)
	case "search":
		return runSearch(globals, args[1:], out, errOut)
	case "list":
		return runList(globals, args[1:], out, errOut)
	case "forget":
		return runForget(globals, args[1:], out, errOut)
	case "doctor":
		return runDoctor(globals, args[1:], out, errOut)
	case "help", "-h", "--help":
		writeUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n", cmd)
		writeUsage(errOut)
		return 2
	}
}

func isVersionCommand(arg string) bool {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "version", "--version", "-v":
		return true
	default:
		return false
	}
}
