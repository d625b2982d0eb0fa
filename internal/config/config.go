// Package config resolves runtime settings for the recon CLI.
//
// Sources are layered, later ones winning:
//
//	defaults < CUE settings file < environment (.env + RECON_*) < CLI flags
//
// The CLI applies its own flags on top of what Load returns.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

//go:embed schema.cue
var schemaCUE []byte

// DefaultEnvFile is read when LoadOptions.EnvFile is empty.
const DefaultEnvFile = ".env"

// Settings is the resolved runtime configuration.
type Settings struct {
	DatabasePath     string `json:"database_path"`
	AuditDir         string `json:"audit_dir"`
	AuditSource      string `json:"audit_source"`
	PageSize         int    `json:"page_size"`
	LogFormat        string `json:"log_format"`
	MetricsFile      string `json:"metrics_file,omitempty"`
	MetricsNamespace string `json:"metrics_namespace"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		DatabasePath:     "recon.db",
		AuditDir:         "audit_logs",
		AuditSource:      "validation_engine",
		PageSize:         100,
		LogFormat:        "text",
		MetricsNamespace: "recon",
	}
}

// Validate checks the invariants every source must respect.
func (s Settings) Validate() error {
	switch {
	case s.DatabasePath == "":
		return &Error{Code: ErrCodeInvalid, Message: "database path is empty"}
	case s.AuditDir == "":
		return &Error{Code: ErrCodeInvalid, Message: "audit directory is empty"}
	case s.PageSize < 1:
		return &Error{Code: ErrCodeInvalid, Message: fmt.Sprintf("page size must be positive, got %d", s.PageSize)}
	case s.LogFormat != "text" && s.LogFormat != "json":
		return &Error{Code: ErrCodeInvalid, Message: fmt.Sprintf("log format must be text or json, got %q", s.LogFormat)}
	}
	return nil
}

// LoadOptions names the optional settings sources.
type LoadOptions struct {
	// File is a CUE settings file. Empty skips it.
	File string

	// EnvFile is a dotenv file. A missing file is not an error.
	EnvFile string
}

// Load resolves settings from defaults, the CUE file and the environment.
func Load(opts LoadOptions) (Settings, error) {
	s := Defaults()

	if opts.File != "" {
		if err := applyFile(&s, opts.File); err != nil {
			return Settings{}, err
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, &Error{Code: ErrCodeEnv, Message: fmt.Sprintf("load %s: %v", envFile, err)}
	}
	if err := applyEnv(&s); err != nil {
		return Settings{}, err
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// fileSettings mirrors Settings with pointers so absent fields stay nil.
type fileSettings struct {
	DatabasePath     *string `json:"database_path"`
	AuditDir         *string `json:"audit_dir"`
	AuditSource      *string `json:"audit_source"`
	PageSize         *int    `json:"page_size"`
	LogFormat        *string `json:"log_format"`
	MetricsFile      *string `json:"metrics_file"`
	MetricsNamespace *string `json:"metrics_namespace"`
}

func applyFile(s *Settings, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("read settings file: %v", err)}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return &Error{Code: ErrCodeSchema, Message: fmt.Sprintf("compile schema: %v", err)}
	}

	file := ctx.CompileBytes(data, cue.Filename(path))
	if err := file.Err(); err != nil {
		return cueError(ErrCodeParse, err)
	}

	value := schema.LookupPath(cue.ParsePath("#Settings")).Unify(file)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return cueError(ErrCodeSchema, err)
	}

	var parsed fileSettings
	if err := value.Decode(&parsed); err != nil {
		return cueError(ErrCodeSchema, err)
	}

	setString(&s.DatabasePath, parsed.DatabasePath)
	setString(&s.AuditDir, parsed.AuditDir)
	setString(&s.AuditSource, parsed.AuditSource)
	setString(&s.LogFormat, parsed.LogFormat)
	setString(&s.MetricsFile, parsed.MetricsFile)
	setString(&s.MetricsNamespace, parsed.MetricsNamespace)
	if parsed.PageSize != nil {
		s.PageSize = *parsed.PageSize
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// envSettings holds the RECON_* overrides. Unset variables stay zero.
type envSettings struct {
	DatabasePath     string `env:"RECON_DB_PATH"`
	AuditDir         string `env:"RECON_AUDIT_DIR"`
	AuditSource      string `env:"RECON_AUDIT_SOURCE"`
	PageSize         int    `env:"RECON_PAGE_SIZE"`
	LogFormat        string `env:"RECON_LOG_FORMAT"`
	MetricsFile      string `env:"RECON_METRICS_FILE"`
	MetricsNamespace string `env:"RECON_METRICS_NAMESPACE"`
}

func applyEnv(s *Settings) error {
	var env envSettings
	if err := envdecode.Decode(&env); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return &Error{Code: ErrCodeEnv, Message: fmt.Sprintf("decode environment: %v", err)}
	}

	for dst, v := range map[*string]string{
		&s.DatabasePath:     env.DatabasePath,
		&s.AuditDir:         env.AuditDir,
		&s.AuditSource:      env.AuditSource,
		&s.LogFormat:        env.LogFormat,
		&s.MetricsFile:      env.MetricsFile,
		&s.MetricsNamespace: env.MetricsNamespace,
	} {
		if v != "" {
			*dst = v
		}
	}
	if env.PageSize != 0 {
		s.PageSize = env.PageSize
	}
	return nil
}

// Error codes.
const (
	ErrCodeNotFound = "C001" // Settings file unreadable
	ErrCodeParse    = "C002" // CUE syntax error
	ErrCodeSchema   = "C003" // Value rejected by the schema
	ErrCodeEnv      = "C004" // Environment could not be decoded
	ErrCodeInvalid  = "C005" // Resolved settings are inconsistent
)

// Error is a configuration failure, positioned in the settings file when
// CUE can tell where.
type Error struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func cueError(code string, err error) *Error {
	e := &Error{Code: code, Message: err.Error()}
	if positions := cueerrors.Positions(err); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}
