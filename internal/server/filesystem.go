package server

import (
	"os"

	"github.com/kenechiaugustine/Justdownloads4u-server/internal/config"
)

// PrepareFilesystem creates the temp root before the server starts
// accepting downloads.
func PrepareFilesystem(cfg *config.Config) error {
	return os.MkdirAll(cfg.TempDir, 0755)
}
