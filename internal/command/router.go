package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

type Args struct {
	values map[string]any
}

func (a Args) Int(name string) int {
	value, _ := a.values[name].(int)
	return value
}

func (a Args) String(name string) string {
	value, _ := a.values[name].(string)
	return value
}

func (a Args) UserID(name string) string {
	value, _ := a.values[name].(string)
	return value
}

type BindError struct {
	Spec  *Spec
	Param string
	Err   error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s.%s: %v", e.Spec.Name, e.Param, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// Dispatch routes one raw message. Input without the prefix is a no-op,
// an unknown command returns ErrCommandNotFound, and the guard runs
// before any argument is bound. Handler errors propagate to the caller.
func (r *Registry) Dispatch(ctx context.Context, raw, prefix string, inv *Invocation, guard Guard, resolve UserResolver) error {
	content, ok := StripPrefix(raw, prefix)
	if !ok {
		return nil
	}

	spec, tail, err := r.Resolve(content)
	if err != nil {
		return err
	}

	if guard != nil {
		if err := guard(spec, inv); err != nil {
			return err
		}
	}

	args, err := Bind(spec, tail, inv, resolve)
	if err != nil {
		return err
	}
	inv.Args = args

	return spec.Handler(ctx, inv)
}

// Bind applies the declared parameter schema to the argument tail.
// Positional parameters bind left to right; a remainder parameter takes
// the rest of the tail verbatim. Unresolvable user mentions fall back to
// the default without consuming the token.
func Bind(spec *Spec, tail string, inv *Invocation, resolve UserResolver) (Args, error) {
	values := make(map[string]any, len(spec.Params))
	rest := tail

	for _, param := range spec.Params {
		if param.Type == Remainder {
			text := strings.TrimSpace(rest)
			rest = ""
			if text == "" {
				if !param.HasDefault {
					return Args{}, &BindError{Spec: spec, Param: param.Name, Err: ErrMissingArgument}
				}
				values[param.Name] = param.Default
				continue
			}
			values[param.Name] = text
			continue
		}

		token, next := splitToken(rest)
		if token == "" {
			if !param.HasDefault {
				return Args{}, &BindError{Spec: spec, Param: param.Name, Err: ErrMissingArgument}
			}
			values[param.Name] = param.Default
			continue
		}

		switch param.Type {
		case Int:
			parsed, err := strconv.Atoi(token)
			if err != nil {
				return Args{}, &BindError{Spec: spec, Param: param.Name, Err: ErrArgumentType}
			}
			values[param.Name] = parsed
			rest = next
		case String:
			values[param.Name] = token
			rest = next
		case UserMention:
			id, ok := resolveUserToken(inv, token, resolve)
			if ok {
				values[param.Name] = id
				rest = next
				continue
			}
			if !param.HasDefault {
				return Args{}, &BindError{Spec: spec, Param: param.Name, Err: ErrArgumentType}
			}
			values[param.Name] = param.Default
		default:
			return Args{}, &BindError{Spec: spec, Param: param.Name, Err: ErrArgumentType}
		}
	}

	return Args{values: values}, nil
}

func resolveUserToken(inv *Invocation, token string, resolve UserResolver) (string, bool) {
	id := token
	if strings.HasPrefix(id, "<@") && strings.HasSuffix(id, ">") {
		id = strings.TrimSuffix(strings.TrimPrefix(id, "<@"), ">")
		id = strings.TrimPrefix(id, "!")
	}
	if id == "" || !isDigits(id) {
		return "", false
	}
	if resolve != nil {
		return resolve(inv, id)
	}
	return id, true
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
