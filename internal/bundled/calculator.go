package bundled

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/keyed/internal/command"
	"github.com/dshills/keyed/internal/execctx"
	"github.com/dshills/keyed/internal/plugin/lua"
)

var (
	// arithmetic admits digits, decimal points, whitespace, parentheses
	// and the operators + - * / % ^.
	arithmetic = regexp.MustCompile(`^[0-9.\s+\-*/%^()]+$`)
	// binaryOp requires an operator after an operand.
	binaryOp = regexp.MustCompile(`[0-9.)]\s*[-+*/%^]\s*[-+(]*\s*[0-9.(]`)
)

// calculator evaluates arithmetic in a dedicated sandboxed Lua state.
type calculator struct {
	state *lua.State
}

func newCalculator() (*calculator, error) {
	s, err := lua.NewState(lua.WithCallTimeout(100 * time.Millisecond))
	if err != nil {
		return nil, err
	}
	return &calculator{state: s}, nil
}

func (c *calculator) close() error {
	return c.state.Close()
}

// isExpression reports whether q looks like arithmetic. "--" starts a Lua
// comment and is rejected.
func isExpression(q string) bool {
	return arithmetic.MatchString(q) && binaryOp.MatchString(q) && !strings.Contains(q, "--")
}

// Evaluate computes q and formats the result.
func (c *calculator) Evaluate(ctx context.Context, q string) (string, error) {
	if !isExpression(q) {
		return "", errors.New("not an arithmetic expression")
	}
	out, err := c.state.Eval(ctx, strings.TrimSpace(q))
	if err != nil {
		return "", err
	}
	if len(out) != 1 {
		return "", errors.New("no result")
	}
	switch v := out[0].(type) {
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return "", errors.New("undefined")
		}
		return strconv.FormatFloat(v, 'g', 12, 64), nil
	default:
		return "", fmt.Errorf("unexpected result %v", v)
	}
}

func (c *calculator) module() *command.Module {
	return &command.Module{
		ShouldActivate: func(ctx context.Context, q string) (bool, error) {
			if !isExpression(q) {
				return false, nil
			}
			_, err := c.Evaluate(ctx, q)
			return err == nil, nil
		},
		Component: command.ComponentFunc(func(ctx context.Context, _ execctx.Context) (*command.Document, error) {
			q := command.QueryFrom(ctx)
			result, err := c.Evaluate(ctx, q)
			if err != nil {
				return nil, err
			}
			return &command.Document{
				Title: result,
				Items: []command.Item{{Title: result, Subtitle: strings.TrimSpace(q), Accessory: "Calculator"}},
			}, nil
		}),
	}
}
