package model

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/mem"
)

// availableMemory reports host memory that can be claimed without swapping.
var availableMemory = func(ctx context.Context) (uint64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

// CheckMemory fails when the host has less available memory than the local
// model file or the configured floor, whichever is larger. Hub models have no
// known size before download, so only the floor applies to them.
func CheckMemory(ctx context.Context, src Source, minFreeMB int) error {
	var need uint64
	if minFreeMB > 0 {
		need = uint64(minFreeMB) << 20
	}
	if src.Kind == SourceLocal && src.SizeBytes > need {
		need = src.SizeBytes
	}
	if need == 0 {
		return nil
	}
	avail, err := availableMemory(ctx)
	if err != nil {
		return fmt.Errorf("read host memory: %w", err)
	}
	if avail < need {
		return insufficientMemoryError{needMB: need >> 20, availableMB: avail >> 20}
	}
	return nil
}
