//go:build !unix

package thread

import "fmt"

// applyHostPriority reports failure on hosts with no setpriority(2)
// equivalent wired up, per spec §4.12's "unsupported host ->
// UnsupportedOperationException".
func applyHostPriority(javaPriority int) error {
	return fmt.Errorf("thread priority is not supported on this platform")
}
