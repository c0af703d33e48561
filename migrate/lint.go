package migrate

import (
	"fmt"
	"regexp"
	"strings"
)

// Finding is an issue found in an up script.
type Finding struct {
	Migration string
	Statement string
	Message   string
	// Breaking reports that applying the statement loses data or fails on
	// existing rows.
	Breaking bool
}

func (f *Finding) String() string {
	kind := "warning"
	if f.Breaking {
		kind = "breaking"
	}
	return fmt.Sprintf("%s: %s: %s", f.Migration, kind, f.Message)
}

// LintResult holds the findings of Lint.
type LintResult struct {
	Findings []*Finding
}

// HasBreakingChanges reports whether any finding is breaking.
func (r *LintResult) HasBreakingChanges() bool {
	for _, f := range r.Findings {
		if f.Breaking {
			return true
		}
	}
	return false
}

// String returns one finding per line.
func (r *LintResult) String() string {
	if len(r.Findings) == 0 {
		return "No issues found"
	}
	lines := make([]string, len(r.Findings))
	for i, f := range r.Findings {
		lines[i] = f.String()
	}
	return strings.Join(lines, "\n")
}

// LintOption configures Lint.
type LintOption func(*lintConfig)

type lintConfig struct {
	allowDropTable  bool
	allowDropColumn bool
	allowNotNull    bool
}

// AllowDropTable reports dropped tables as warnings.
func AllowDropTable() LintOption {
	return func(c *lintConfig) {
		c.allowDropTable = true
	}
}

// AllowDropColumn reports dropped columns as warnings.
func AllowDropColumn() LintOption {
	return func(c *lintConfig) {
		c.allowDropColumn = true
	}
}

// AllowNullToNotNull reports columns becoming NOT NULL as warnings.
func AllowNullToNotNull() LintOption {
	return func(c *lintConfig) {
		c.allowNotNull = true
	}
}

type rule struct {
	re       *regexp.Regexp
	message  string
	breaking func(*lintConfig) bool
	except   *regexp.Regexp // suppresses the finding
}

func always(*lintConfig) bool { return true }

func never(*lintConfig) bool { return false }

var rules = []rule{
	{
		re:       regexp.MustCompile(`(?i)^DROP\s+TABLE\b`),
		message:  "table will be dropped",
		breaking: func(c *lintConfig) bool { return !c.allowDropTable },
	},
	{
		re:       regexp.MustCompile(`(?i)^ALTER\s+TABLE\b.*\bDROP\s+COLUMN\b`),
		message:  "column will be dropped",
		breaking: func(c *lintConfig) bool { return !c.allowDropColumn },
	},
	{
		re:       regexp.MustCompile(`(?i)^ALTER\s+TABLE\b.*\bSET\s+NOT\s+NULL\b`),
		message:  "column changing to NOT NULL may fail if it has NULL values",
		breaking: func(c *lintConfig) bool { return !c.allowNotNull },
	},
	{
		re:       regexp.MustCompile(`(?i)^ALTER\s+TABLE\b.*\bADD\s+(COLUMN\s+)?\S+\s+[^,]*\bNOT\s+NULL\b`),
		message:  "new NOT NULL column without default value may fail if table has data",
		breaking: never,
		except:   regexp.MustCompile(`(?i)\bDEFAULT\b`),
	},
	{
		re:       regexp.MustCompile(`(?i)^TRUNCATE\b`),
		message:  "table rows will be removed",
		breaking: always,
	},
	{
		re:       regexp.MustCompile(`(?i)^DELETE\s+FROM\s+\S+\s*$`),
		message:  "delete without WHERE removes every row",
		breaking: always,
	},
	{
		re:       regexp.MustCompile(`(?i)^CREATE\s+UNIQUE\s+INDEX\b`),
		message:  "adding UNIQUE constraint may fail if duplicate values exist",
		breaking: never,
	},
}

// Lint inspects the up scripts of m for statements that lose data or may
// fail on a populated database. Breaking findings can be downgraded to
// warnings with the Allow options.
//
//	result := migrate.Lint(m)
//	if result.HasBreakingChanges() {
//	    log.Fatal(result)
//	}
func Lint(m *Migrator, opts ...LintOption) *LintResult {
	cfg := &lintConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	result := &LintResult{}
	for _, mig := range m.migrations {
		for _, stmt := range statements(mig.Up) {
			for _, r := range rules {
				if !r.re.MatchString(stmt) || (r.except != nil && r.except.MatchString(stmt)) {
					continue
				}
				result.Findings = append(result.Findings, &Finding{
					Migration: mig.Name,
					Statement: stmt,
					Message:   r.message,
					Breaking:  r.breaking(cfg),
				})
			}
		}
	}
	return result
}

var (
	lineComment = regexp.MustCompile(`--[^\n]*`)
	space       = regexp.MustCompile(`\s+`)
)

// statements splits a script on semicolons into single line statements with
// comments removed. Quoted semicolons are not handled.
func statements(script string) []string {
	script = lineComment.ReplaceAllString(script, "")
	var stmts []string
	for _, s := range strings.Split(script, ";") {
		s = strings.TrimSpace(space.ReplaceAllString(s, " "))
		if s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
