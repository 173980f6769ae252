//go:build linux

package helpers

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// totalSystemMemoryMB returns physical memory in MB, capped by a cgroup v2
// memory.max when the process runs in a container.
func totalSystemMemoryMB() int {
	total := memInfoTotalMB()
	if cg := cgroupLimitMB(); cg > 0 && (total == 0 || cg < total) {
		return cg
	}
	return total
}

func memInfoTotalMB() int {
	file, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[0] == "MemTotal:" {
			kb, err := strconv.Atoi(fields[1])
			if err == nil {
				return kb / 1024
			}
		}
	}
	return 0
}

func cgroupLimitMB() int {
	raw, err := os.ReadFile("/sys/fs/cgroup/memory.max")
	if err != nil {
		return 0
	}
	v := strings.TrimSpace(string(raw))
	if v == "max" {
		return 0
	}
	bytes, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return int(bytes >> 20)
}
