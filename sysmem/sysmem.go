// Package sysmem reports how much memory the host can spare. The figure
// feeds the buffer budget checks in package bookcoder, so oversized buffer
// requests fail up front instead of thrashing the machine.
package sysmem

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"
)

// Available returns the number of bytes of memory the host could grant right
// now without swapping.
func Available() (int64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, fmt.Errorf("querying available memory: %w", err)
	}
	return int64(vm.Available), nil
}
