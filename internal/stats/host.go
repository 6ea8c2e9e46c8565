package stats

import (
	"context"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// HostProvider reads telemetry from the local machine through gopsutil.
type HostProvider struct{}

func NewHostProvider() HostProvider {
	return HostProvider{}
}

// CPUPercent returns overall CPU load since the previous call.
func (HostProvider) CPUPercent(ctx context.Context) (float64, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	if len(percents) == 0 {
		return 0, nil
	}
	return percents[0], nil
}

func (HostProvider) Memory(ctx context.Context) (uint64, uint64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	return vm.Active, vm.Total, nil
}
