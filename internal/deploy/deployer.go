package deploy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"claudepm/internal/backup"
	"claudepm/internal/config"
	"claudepm/internal/history"
	"claudepm/internal/logging"
	"claudepm/internal/template"
	"claudepm/internal/version"
)

// Deployer renders the framework master template into target
// directories, creating backups and recording history as it goes.
type Deployer struct {
	cfg     *config.Config
	backups *backup.Store
	hist    *history.Store // optional, may be nil
}

// New builds a deployer. hist may be nil when no history recording is
// wanted (tests, dry runs).
func New(cfg *config.Config, backups *backup.Store, hist *history.Store) *Deployer {
	return &Deployer{cfg: cfg, backups: backups, hist: hist}
}

// Options modify a single deploy call.
type Options struct {
	// Force bypasses the version check but never the template check.
	Force bool

	// DeploymentID overrides the generated UUID, for reproducible runs.
	DeploymentID string

	// Variables are merged over the default variable set.
	Variables map[string]string

	// BackupType tags the pre-overwrite backup. Defaults to general.
	BackupType string
}

// Result reports the outcome of one deploy call.
type Result struct {
	Success         bool
	Action          Action
	State           State
	Target          string
	VersionDeployed string
	PreviousVersion string
	BackupPath      string
	Reason          string
}

// platformNotes substituted into the PLATFORM_NOTES variable.
func platformNotes() string {
	switch runtime.GOOS {
	case "windows":
		return "Windows deployment: use backslash-safe paths in scripts."
	case "darwin":
		return "macOS deployment: case-insensitive filesystem by default."
	default:
		return "Linux deployment: standard POSIX paths."
	}
}

// defaultVariables builds the substitution map for one deployment.
func (d *Deployer) defaultVariables(targetDir, newVersion, deploymentID string) map[string]string {
	now := time.Now().Format(time.RFC3339)
	return map[string]string{
		"CLAUDE_MD_VERSION": newVersion,
		"FRAMEWORK_VERSION": d.cfg.FrameworkVersion(),
		"DEPLOYMENT_DATE":   now,
		"LAST_UPDATED":      now,
		"DEPLOYMENT_ID":     deploymentID,
		"TARGET_DIRECTORY":  targetDir,
		"PROJECT_ROOT":      targetDir,
		"PLATFORM_NOTES":    platformNotes(),
	}
}

// TargetPath returns the deployed file path for a target directory.
func (d *Deployer) TargetPath(targetDir string) string {
	return filepath.Join(targetDir, d.cfg.Deployment.TargetFilename)
}

// BackupFramework stores a rotating backup of the framework master
// template. Called before redeploying after a template change, so the
// previous template generation stays recoverable. Returns the backup
// path, or "" when the template is missing or the copy failed.
func (d *Deployer) BackupFramework() string {
	return d.backups.CreateFramework(d.cfg.TemplateFile())
}

// Deploy renders the framework template into targetDir, honoring the
// decision machine. A failed backup aborts the overwrite of an
// existing file rather than risking data loss.
func (d *Deployer) Deploy(ctx context.Context, targetDir string, opts Options) (Result, error) {
	targetPath := d.TargetPath(targetDir)
	res := Result{Target: targetPath}

	templateText, err := os.ReadFile(d.cfg.TemplateFile())
	if err != nil {
		return res, fmt.Errorf("reading framework template %s: %w", d.cfg.TemplateFile(), err)
	}

	existingContent := ""
	targetExists := false
	if data, err := os.ReadFile(targetPath); err == nil {
		existingContent = string(data)
		targetExists = true
	} else if !os.IsNotExist(err) {
		return res, fmt.Errorf("reading target %s: %w", targetPath, err)
	}

	existingVersion, _ := version.Extract(existingContent)
	frameworkVersion := d.cfg.FrameworkVersion()

	// The decision compares the deployed version against the framework
	// version itself, old-style "4.5.1" meaning serial 0. Any deployment
	// of the current framework version (serial >= 0) is therefore
	// current. The serial-incremented version is generated only once the
	// decision is to deploy; deciding against the incremented candidate
	// would always see it as newer and redeploy on every run.
	dec := Decide(existingContent, targetExists, frameworkVersion, opts.Force)
	res.Action = dec.Action
	res.State = dec.State
	res.Reason = dec.Reason
	res.PreviousVersion = dec.ExistingVersion

	logging.Deploy("decide %s: action=%s state=%s reason=%s", targetPath, dec.Action, dec.State, dec.Reason)

	if dec.Action != ActionDeploy {
		res.Success = true
		d.record(ctx, "skip", res, opts)
		return res, nil
	}

	if targetExists && d.cfg.Backup.AutoBackup {
		backupType := opts.BackupType
		if backupType == "" {
			backupType = backup.TypeGeneral
		}
		res.BackupPath = d.backups.Create(targetPath, backupType)
		if res.BackupPath == "" {
			d.record(ctx, "deploy", res, opts)
			return res, fmt.Errorf("backup of %s failed; aborting overwrite", targetPath)
		}
	}

	newVersion := version.Next(existingVersion, frameworkVersion)

	deploymentID := opts.DeploymentID
	if deploymentID == "" {
		deploymentID = uuid.NewString()
	}

	vars := d.defaultVariables(targetDir, newVersion, deploymentID)
	for k, v := range opts.Variables {
		vars[k] = v
	}

	// CONTENT_HASH covers the rendered body with the hash slot empty,
	// so re-hashing a deployed file with the slot blanked reproduces it.
	vars["CONTENT_HASH"] = ""
	prehash := template.Render(string(templateText), vars)
	sum := sha256.Sum256([]byte(prehash))
	vars["CONTENT_HASH"] = hex.EncodeToString(sum[:])

	rendered := template.Render(string(templateText), vars)

	if leftover := template.FindUnresolved(rendered); len(leftover) > 0 {
		logging.Deploy("unresolved placeholders in %s: %s", targetPath, strings.Join(leftover, ", "))
	}

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return res, fmt.Errorf("creating target directory %s: %w", targetDir, err)
	}
	if err := os.WriteFile(targetPath, []byte(rendered), 0644); err != nil {
		d.record(ctx, "deploy", res, opts)
		return res, fmt.Errorf("writing %s: %w", targetPath, err)
	}

	res.Success = true
	res.VersionDeployed = newVersion
	logging.Deploy("deployed %s version %s (previous: %s)", targetPath, newVersion, dec.ExistingVersion)
	d.record(ctx, "deploy", res, opts)
	return res, nil
}

func (d *Deployer) record(ctx context.Context, action string, res Result, opts Options) {
	if d.hist == nil {
		return
	}
	op := history.Operation{
		OpID:            uuid.NewString(),
		Action:          action,
		TargetPath:      res.Target,
		TemplateID:      d.cfg.Deployment.TemplatePath,
		Success:         res.Success,
		Version:         res.VersionDeployed,
		PreviousVersion: res.PreviousVersion,
		BackupPath:      res.BackupPath,
		Reason:          res.Reason,
	}
	if err := d.hist.Record(ctx, op); err != nil {
		logging.Deploy("could not record history for %s: %v", res.Target, err)
	}
}

// ValidationReport describes the integrity of one deployed file.
type ValidationReport struct {
	Target       string
	Exists       bool
	IsTemplate   bool
	Version      string
	Unresolved   []string
	HashRecorded string
	HashActual   string
	HashMatches  bool
}

// Validate inspects the deployed file in targetDir: classification,
// version presence, leftover placeholders, and content hash.
func (d *Deployer) Validate(targetDir string) ValidationReport {
	targetPath := d.TargetPath(targetDir)
	rep := ValidationReport{Target: targetPath}

	data, err := os.ReadFile(targetPath)
	if err != nil {
		return rep
	}
	content := string(data)
	rep.Exists = true
	rep.IsTemplate = template.IsDeploymentTemplate(content)
	if v, ok := version.Extract(content); ok {
		rep.Version = v
	}
	rep.Unresolved = template.FindUnresolved(content)

	rep.HashRecorded, rep.HashActual = verifyContentHash(content)
	rep.HashMatches = rep.HashRecorded != "" && rep.HashRecorded == rep.HashActual

	logging.Get(logging.CategoryValidate).Debug("validated %s: template=%v version=%s unresolved=%d hash_ok=%v",
		targetPath, rep.IsTemplate, rep.Version, len(rep.Unresolved), rep.HashMatches)
	return rep
}

// verifyContentHash extracts the recorded CONTENT_HASH and recomputes
// the hash over the content with the hash value blanked.
func verifyContentHash(content string) (recorded, actual string) {
	const marker = "CONTENT_HASH:"
	idx := strings.Index(content, marker)
	if idx < 0 {
		return "", ""
	}
	rest := content[idx+len(marker):]
	end := strings.IndexAny(rest, "\n")
	line := rest
	if end >= 0 {
		line = rest[:end]
	}
	recorded = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), "-->"))
	recorded = strings.TrimSpace(recorded)
	if recorded == "" {
		return "", ""
	}

	blanked := strings.Replace(content, recorded, "", 1)
	sum := sha256.Sum256([]byte(blanked))
	return recorded, hex.EncodeToString(sum[:])
}

// StatusInfo summarizes one target directory for status reporting.
type StatusInfo struct {
	Target           string
	Exists           bool
	IsTemplate       bool
	DeployedVersion  string
	FrameworkVersion string
	UpToDate         bool
}

// Status compares the deployed file in targetDir against the current
// framework version without modifying anything.
func (d *Deployer) Status(targetDir string) StatusInfo {
	targetPath := d.TargetPath(targetDir)
	info := StatusInfo{
		Target:           targetPath,
		FrameworkVersion: d.cfg.FrameworkVersion(),
	}

	data, err := os.ReadFile(targetPath)
	if err != nil {
		return info
	}
	content := string(data)
	info.Exists = true
	info.IsTemplate = template.IsDeploymentTemplate(content)

	v, ok := version.Extract(content)
	if !ok {
		return info
	}
	info.DeployedVersion = v
	info.UpToDate = version.FrameworkPart(v) == info.FrameworkVersion
	return info
}
