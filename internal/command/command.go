package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrDuplicateCommand = errors.New("duplicate command")
	ErrCommandNotFound  = errors.New("command not found")
	ErrMissingArgument  = errors.New("missing argument")
	ErrArgumentType     = errors.New("argument type mismatch")
)

type ParamType int

const (
	Int ParamType = iota
	String
	Remainder
	UserMention
)

type Param struct {
	Name       string
	Type       ParamType
	Default    any
	HasDefault bool
}

func Required(name string, paramType ParamType) Param {
	return Param{Name: name, Type: paramType}
}

func Optional(name string, paramType ParamType, def any) Param {
	return Param{Name: name, Type: paramType, Default: def, HasDefault: true}
}

type Invocation struct {
	GuildID   string
	ChannelID string
	AuthorID  string
	MessageID string
	Args      Args
}

type HandlerFunc func(ctx context.Context, inv *Invocation) error

// Guard runs after resolution and before binding; returning an error
// aborts the dispatch without invoking the handler.
type Guard func(spec *Spec, inv *Invocation) error

// UserResolver turns a mention token or bare id into a platform user id.
type UserResolver func(inv *Invocation, token string) (string, bool)

type Spec struct {
	Name        string
	Aliases     []string
	Description string
	Params      []Param
	RequireUser int64
	RequireBot  int64
	GuildOnly   bool
	Handler     HandlerFunc
}

type Registry struct {
	mu    sync.RWMutex
	specs map[string]*Spec
}

func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]*Spec)}
}

func (r *Registry) Register(spec Spec) error {
	if spec.Name == "" {
		return errors.New("command name is required")
	}
	if spec.Handler == nil {
		return fmt.Errorf("command %s has no handler", spec.Name)
	}
	for i, param := range spec.Params {
		if param.Type == Remainder && i != len(spec.Params)-1 {
			return fmt.Errorf("command %s: remainder parameter %s must be last", spec.Name, param.Name)
		}
	}

	keys := make([]string, 0, len(spec.Aliases)+1)
	keys = append(keys, strings.ToLower(spec.Name))
	for _, alias := range spec.Aliases {
		keys = append(keys, strings.ToLower(alias))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range keys {
		if _, exists := r.specs[key]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateCommand, key)
		}
	}
	owned := spec
	for _, key := range keys {
		r.specs[key] = &owned
	}
	return nil
}

// Resolve maps command text (prefix already stripped) to a spec and the
// unparsed argument tail. Two-token names ("pomodoro start") are matched
// before single-token ones so subcommands win over a bare group name.
func (r *Registry) Resolve(content string) (*Spec, string, error) {
	first, rest := splitToken(content)
	if first == "" {
		return nil, "", ErrCommandNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	second, tail := splitToken(rest)
	if second != "" {
		if spec, ok := r.specs[strings.ToLower(first+" "+second)]; ok {
			return spec, tail, nil
		}
	}
	if spec, ok := r.specs[strings.ToLower(first)]; ok {
		return spec, rest, nil
	}
	return nil, "", fmt.Errorf("%w: %s", ErrCommandNotFound, first)
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[*Spec]struct{}, len(r.specs))
	names := make([]string, 0, len(r.specs))
	for _, spec := range r.specs {
		if _, ok := seen[spec]; ok {
			continue
		}
		seen[spec] = struct{}{}
		names = append(names, spec.Name)
	}
	return names
}

// StripPrefix returns the command text without the prefix, or false when
// the input is not addressed to the bot.
func StripPrefix(raw, prefix string) (string, bool) {
	if prefix == "" || !strings.HasPrefix(raw, prefix) {
		return "", false
	}
	content := strings.TrimSpace(strings.TrimPrefix(raw, prefix))
	if content == "" {
		return "", false
	}
	return content, true
}

func Usage(spec *Spec) string {
	var b strings.Builder
	b.WriteString(spec.Name)
	for _, param := range spec.Params {
		if param.HasDefault {
			fmt.Fprintf(&b, " [%s]", param.Name)
		} else {
			fmt.Fprintf(&b, " <%s>", param.Name)
		}
	}
	return b.String()
}

func splitToken(input string) (string, string) {
	input = strings.TrimLeft(input, " \t")
	if input == "" {
		return "", ""
	}
	idx := strings.IndexAny(input, " \t")
	if idx < 0 {
		return input, ""
	}
	return input[:idx], strings.TrimLeft(input[idx:], " \t")
}
