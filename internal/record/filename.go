package record

import "fmt"

// FileName builds a per-task record file name, optionally prefixed by the
// POD environment variable per spec §6's "Environment. POD — optional
// prefix for per-task record file names."
func FileName(pod, taskID, n string) string {
	if pod == "" {
		return fmt.Sprintf("%s-%s.fan.rec", taskID, n)
	}
	return fmt.Sprintf("%s-%s-%s.fan.rec", pod, taskID, n)
}
