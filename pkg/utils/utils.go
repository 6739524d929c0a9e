// pkg/utils/utils.go
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ratio1/r1nodectl/internal/constants"
)

const hoursInDay = 24

// FindConfigFile resolves a config file name: absolute paths are taken as
// given, then the current directory is tried, then the data directory.
func FindConfigFile(fileName string) (string, error) {
	// If file name is absolute, return it directly
	if filepath.IsAbs(fileName) {

		return fileName, nil
	}

	// Try current directory
	if _, err := os.Stat(fileName); err == nil {

		return fileName, nil
	}

	// Try the data directory
	if home, err := os.UserHomeDir(); err == nil {
		dataFile := filepath.Join(home, constants.DataDirName, fileName)
		if _, err := os.Stat(dataFile); err == nil {

			return dataFile, nil
		}
	}

	return "", fmt.Errorf("config file '%s' not found", fileName)
}

// FormatDuration formats a duration in a human-readable format
func FormatDuration(d time.Duration) string {
	if d.Hours() > hoursInDay {
		days := int(d.Hours() / hoursInDay)

		return fmt.Sprintf("%d days", days)
	}

	if d.Hours() >= 1 {

		return fmt.Sprintf("%.1f hours", d.Hours())
	}

	if d.Minutes() >= 1 {

		return fmt.Sprintf("%.1f minutes", d.Minutes())
	}

	if d.Seconds() >= 1 {

		return fmt.Sprintf("%.1f seconds", d.Seconds())
	}

	return "less than a second"
}

// FormatSize formats a size in a human-readable format
func FormatSize(size int64) string {
	const (
		B   = 1
		KiB = 1024 * B
		MiB = 1024 * KiB
		GiB = 1024 * MiB
		TiB = 1024 * GiB
		PiB = 1024 * TiB
	)

	switch {
	case size >= PiB:

		return fmt.Sprintf("%.2f PiB", float64(size)/float64(PiB))
	case size >= TiB:

		return fmt.Sprintf("%.2f TiB", float64(size)/float64(TiB))
	case size >= GiB:

		return fmt.Sprintf("%.2f GiB", float64(size)/float64(GiB))
	case size >= MiB:

		return fmt.Sprintf("%.2f MiB", float64(size)/float64(MiB))
	case size >= KiB:

		return fmt.Sprintf("%.2f KiB", float64(size)/float64(KiB))
	default:

		return fmt.Sprintf("%d B", size)
	}
}
