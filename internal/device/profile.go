package device

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Profile describes the installation the bridge is running in. The clone
// heuristic reads it; the sync collaborator uses InstallID as the device
// identifier.
type Profile struct {
	PackageID         string
	ExpectedPackage   string
	DataDir           string
	FilesDir          string
	InstalledPackages []string
	InstallID         string

	log *zap.Logger
}

// NewProfile builds a profile from the configured environment. When the shell
// provides no stable device identifier, a generated one is persisted under
// stateDir so it survives restarts.
func NewProfile(packageID, expectedPackage, dataDir, filesDir, stateDir string, installed []string, log *zap.Logger) *Profile {
	return &Profile{
		PackageID:         packageID,
		ExpectedPackage:   expectedPackage,
		DataDir:           dataDir,
		FilesDir:          filesDir,
		InstalledPackages: installed,
		InstallID:         loadOrCreateInstallID(stateDir, log),
		log:               log,
	}
}

func loadOrCreateInstallID(stateDir string, log *zap.Logger) string {
	path := filepath.Join(stateDir, "install_id")
	if data, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id
		}
	}

	id := uuid.NewString()
	if err := os.MkdirAll(stateDir, 0755); err == nil {
		if err := os.WriteFile(path, []byte(id), 0644); err != nil {
			log.Warn("Failed to persist install id", zap.Error(err))
		}
	} else {
		log.Warn("Failed to create state directory", zap.Error(err))
	}
	return id
}
