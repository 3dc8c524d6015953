package app

import (
	"io"
	"os"
)

func writeUsage(w io.Writer) {
	useColor := shouldColorize(w)
	title := colorize(useColor, "scanpack - codebase scanner and partition planner")
	usage := colorize(useColor, "Usage:")
	commands := colorize(useColor, "Commands:")

	io.WriteString(w, title+"\n\n")
	io.WriteString(w, usage+"\n")
	io.WriteString(w, "  scanpack [--data-dir <path>] <command> [options]\n\n")
	io.WriteString(w, colorize(useColor, "Global options:")+"\n")
	io.WriteString(w, "  --data-dir <path>  Override data dir (SCANPACK_DATA_DIR)\n\n")
	io.WriteString(w, "Version:\n")
	io.WriteString(w, "  scanpack version | scanpack --version | scanpack -v\n\n")
	io.WriteString(w, commands+"\n")
	io.WriteString(w, "  scan       scanpack scan [path] [--include <glob>] [--exclude <glob>] [--watch] [--summary]\n")
	io.WriteString(w, "  partition  scanpack partition [path] [--mode auto|directory|flat] [--target-tokens <n>] [--min-tokens <n>] [--max-tokens <n>] [--max-partitions <n>]\n")
	io.WriteString(w, "  analyze    scanpack analyze [path] [--results-dir <dir>] [--payload-dir <dir>] [--parallel <n>] [--resume] [--fresh] [--mode auto|directory|flat]\n")
	io.WriteString(w, "  status     scanpack status [path]\n")
	io.WriteString(w, "  search     scanpack search \"<query>\" [path] [--limit <n>]\n")
	io.WriteString(w, "  list       scanpack list [path] [--limit <n>]\n")
	io.WriteString(w, "  forget     scanpack forget <record-id> [path]\n")
	io.WriteString(w, "  doctor     scanpack doctor [path]\n")
}

func shouldColorize(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

func colorize(enabled bool, text string) string {
	if !enabled {
		return text
	}
	const purple = "\x1b[35m"
	const bold = "\x1b[1m"
	const reset = "\x1b[0m"
	return bold + purple + text + reset
}
