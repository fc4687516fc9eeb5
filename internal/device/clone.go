package device

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Known app cloner package names. Presence alone is logged for telemetry but
// never blocks on its own.
var clonerPackages = []string{
	"com.lbe.parallel.intl",
	"com.lbe.parallel.intl.arm64",
	"com.excelliance.dualaid",
	"com.parallel.space",
	"com.parallel.space.lite",
	"com.jumobile.multiapp",
	"com.ludashi.dualspace",
	"com.ludashi.superboost",
	"com.polestar.multiaccount",
	"com.cloneapp.dual",
	"com.trigtech.privateme",
	"com.nox.mopen.app",
	"in.parallel.space",
	"com.dual.space.clone",
	"com.applisto.appcloner",
	"com.oasisfeng.island",
	"com.samsung.android.knox.containercore",
}

var cloneDirMarkers = []string{
	"clone", "dual", "parallel", "dualspace", "multi", "island", "privateme",
	"999", // some cloners run under user 999
}

// Cloned reports whether the installation looks like a clone/dual-space
// environment. This is an advisory heuristic: any internal error fails open
// so a legitimate user is never blocked by a detection bug.
func (p *Profile) Cloned() (cloned bool) {
	defer func() {
		if r := recover(); r != nil {
			if p.log != nil {
				p.log.Error("Cloner detection panicked, failing open", zap.Any("cause", r))
			}
			cloned = false
		}
	}()

	// Check 1: package identifier doesn't match the published one.
	if p.ExpectedPackage != "" && p.PackageID != p.ExpectedPackage {
		p.log.Warn("Package name mismatch",
			zap.String("current", p.PackageID),
			zap.String("expected", p.ExpectedPackage))
		return true
	}

	// Check 2: data directory carries clone-related markers.
	if suspiciousDir(p.DataDir) {
		p.log.Warn("Suspicious data directory", zap.String("dir", p.DataDir))
		return true
	}

	// Non-primary user id in the data path (Android multi-user indicator).
	// Normal: /data/data/com.package or /data/user/0/com.package
	// Cloned: /data/user/10/com.package or /data/user/999/com.package
	if uid, ok := dataPathUserID(p.DataDir); ok && uid > 0 {
		p.log.Warn("Running under non-primary user id",
			zap.Int("uid", uid), zap.String("dir", p.DataDir))
		return true
	}

	// Check 3: known cloner apps installed. Logged only.
	for _, pkg := range p.InstalledPackages {
		for _, cloner := range clonerPackages {
			if pkg == cloner {
				p.log.Warn("Known cloner app installed", zap.String("package", pkg))
			}
		}
	}

	// Check 4: files directory markers.
	if suspiciousDir(p.FilesDir) {
		p.log.Warn("Suspicious files directory", zap.String("dir", p.FilesDir))
		return true
	}

	return false
}

func suspiciousDir(dir string) bool {
	if dir == "" {
		return false
	}
	lower := strings.ToLower(dir)
	for _, marker := range cloneDirMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// dataPathUserID extracts N from a /data/user/N/... path.
func dataPathUserID(dir string) (int, bool) {
	const prefix = "/data/user/"
	idx := strings.Index(dir, prefix)
	if idx < 0 {
		return 0, false
	}
	rest := dir[idx+len(prefix):]
	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return 0, false
	}
	uid, err := strconv.Atoi(rest[:slash])
	if err != nil {
		return 0, false
	}
	return uid, true
}
