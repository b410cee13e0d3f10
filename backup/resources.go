package backup

import (
	"slightbackup/logging"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceGuard refuses exports when the host is short on memory or the
// backup directory is short on disk. Zero thresholds disable a check.
type ResourceGuard struct {
	MinFreeDisk int64
	MinFreeMem  int64
}

// Check verifies that the system has enough free resources to start an export into dir.
func (g ResourceGuard) Check(dir string) error {
	log := logging.Default()

	if g.MinFreeMem > 0 {
		vm, err := mem.VirtualMemory()
		if err != nil {
			log.WithError(err).Warn("Could not get memory usage.")
		} else if vm.Available < uint64(g.MinFreeMem) {
			return errors.Errorf("not enough free memory. Available: %d, Required: %d", vm.Available, g.MinFreeMem)
		}
	}

	if g.MinFreeDisk > 0 {
		d, err := disk.Usage(dir)
		if err != nil {
			log.WithError(err).WithField("dir", dir).Warn("Could not get disk usage.")
		} else if d.Free < uint64(g.MinFreeDisk) {
			return errors.Errorf("not enough free disk space. Available: %d, Required: %d", d.Free, g.MinFreeDisk)
		}
	}
	return nil
}
