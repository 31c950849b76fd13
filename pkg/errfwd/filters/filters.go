// Package filters provides built-in filter constructors for browser error
// reports. Every exported value is a candidate that can be passed directly to
// errfwd.WithIgnoreFilters or errfwd.WithForceForwardFilters.
package filters

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/strongdm/ai-cxdb-errfwd/pkg/errfwd"
)

// Registered filter names.
const (
	NameAlways           = "always"
	NameNever            = "never"
	NameScriptError      = "script-error"
	NameBrowserExtension = "browser-extension"
)

// Register adds the named built-in filters to reg.
func Register(reg *errfwd.Registry) {
	reg.RegisterFilter(NameAlways, Always)
	reg.RegisterFilter(NameNever, Never)
	reg.RegisterFilter(NameScriptError, ScriptError)
	reg.RegisterFilter(NameBrowserExtension, BrowserExtension)
}

type constant bool

func (c constant) Filter(ctx context.Context, occ errfwd.Occurrence) bool {
	return bool(c)
}

// Always matches every occurrence. As an ignore filter it suppresses
// everything that is not force-forwarded.
func Always() errfwd.Filter {
	return constant(true)
}

// Never matches nothing.
func Never() errfwd.Filter {
	return constant(false)
}

// ScriptError matches the opaque "Script error." reports browsers emit for
// errors thrown by cross-origin scripts. They carry no usable detail.
func ScriptError() errfwd.Filter {
	return errfwd.FilterFunc(func(ctx context.Context, occ errfwd.Occurrence) bool {
		msg := strings.TrimSpace(occ.Message)
		return (msg == "Script error." || msg == "Script error") && occ.Line == 0
	})
}

var extensionSchemes = []string{
	"chrome-extension://",
	"moz-extension://",
	"safari-extension://",
	"safari-web-extension://",
	"ms-browser-extension://",
}

// BrowserExtension matches occurrences raised by browser extensions injected
// into the page rather than by the application itself.
func BrowserExtension() errfwd.Filter {
	return errfwd.FilterFunc(func(ctx context.Context, occ errfwd.Occurrence) bool {
		for _, scheme := range extensionSchemes {
			if strings.HasPrefix(occ.Source, scheme) {
				return true
			}
		}
		return false
	})
}

// MessagePattern returns a constructor for a filter matching messages against
// any of the given regular expressions. Invalid patterns are logged and dropped.
func MessagePattern(patterns ...string) func() errfwd.Filter {
	return func() errfwd.Filter {
		compiled := make([]*regexp.Regexp, 0, len(patterns))
		for _, p := range patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				log.Warn().Err(err).Str("method", "MessagePattern").Str("pattern", p).Msg("invalid message pattern")
				continue
			}
			compiled = append(compiled, re)
		}
		return errfwd.FilterFunc(func(ctx context.Context, occ errfwd.Occurrence) bool {
			for _, re := range compiled {
				if re.MatchString(occ.Message) {
					return true
				}
			}
			return false
		})
	}
}

// SourcePatterns returns a constructor for a filter matching the path of the
// occurrence source against gitignore-style patterns, e.g. "vendor/" or
// "*.min.js". Negated patterns ("!app.min.js") re-include paths.
func SourcePatterns(patterns ...string) func() errfwd.Filter {
	return func() errfwd.Filter {
		matcher := ignore.CompileIgnoreLines(patterns...)
		return errfwd.FilterFunc(func(ctx context.Context, occ errfwd.Occurrence) bool {
			p := sourcePath(occ.Source)
			if p == "" {
				return false
			}
			return matcher.MatchesPath(p)
		})
	}
}

// sourcePath returns the path component of a URL source, or the source itself
// when it is not a URL.
func sourcePath(source string) string {
	if u, err := url.Parse(source); err == nil && u.Scheme != "" && u.Host != "" {
		return strings.TrimPrefix(u.Path, "/")
	}
	return strings.TrimPrefix(source, "/")
}
