// Package protocol parses the line-oriented order entry protocol:
//
//	SUB LO <B|S> <id> <qty> <price>
//	SUB MO <B|S> <id> <qty>
//	CXL <id>
//	END
//
// It is the only place that turns text into orders; the engine never
// sees malformed input.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"clob/domain/orderbook"
)

type Kind uint8

const (
	Submit Kind = iota + 1
	Cancel
	End
)

func (k Kind) String() string {
	switch k {
	case Submit:
		return "SUB"
	case Cancel:
		return "CXL"
	case End:
		return "END"
	default:
		return "UNKNOWN"
	}
}

// Command is one parsed line. Order is set for Submit, ID for Cancel.
type Command struct {
	Kind  Kind
	Order orderbook.Order
	ID    orderbook.OrderID
}

// ErrMalformed is wrapped by every ParseError.
var ErrMalformed = errors.New("protocol: malformed command")

// ErrBlank is returned for lines with no tokens. Callers skip them.
var ErrBlank = errors.New("protocol: blank line")

type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("protocol: %s: %q", e.Reason, e.Line)
}

func (e *ParseError) Unwrap() error { return ErrMalformed }

// Parse decodes a single command line.
func Parse(line string) (Command, error) {
	f := strings.Fields(line)
	if len(f) == 0 {
		return Command{}, ErrBlank
	}
	fail := func(format string, args ...any) (Command, error) {
		return Command{}, &ParseError{Line: line, Reason: fmt.Sprintf(format, args...)}
	}

	switch f[0] {
	case "SUB":
		return parseSubmit(line, f[1:])
	case "CXL":
		if len(f) != 2 {
			return fail("CXL takes exactly one id, got %d fields", len(f)-1)
		}
		return Command{Kind: Cancel, ID: orderbook.OrderID(f[1])}, nil
	case "END":
		if len(f) != 1 {
			return fail("END takes no fields")
		}
		return Command{Kind: End}, nil
	default:
		return fail("unknown command %q", f[0])
	}
}

func parseSubmit(line string, f []string) (Command, error) {
	fail := func(format string, args ...any) (Command, error) {
		return Command{}, &ParseError{Line: line, Reason: fmt.Sprintf(format, args...)}
	}
	if len(f) < 4 {
		return fail("SUB needs kind, side, id and quantity")
	}

	var market bool
	switch f[0] {
	case "LO":
	case "MO":
		market = true
	default:
		return fail("unknown order kind %q", f[0])
	}

	var side orderbook.Side
	switch f[1] {
	case "B":
		side = orderbook.Buy
	case "S":
		side = orderbook.Sell
	default:
		return fail("unknown side %q", f[1])
	}

	id := orderbook.OrderID(f[2])
	qty, err := strconv.ParseUint(f[3], 10, 64)
	if err != nil {
		return fail("bad quantity %q", f[3])
	}

	// a market order has no price; anything after the quantity is ignored
	if market {
		return Command{Kind: Submit, Order: orderbook.NewMarket(id, side, qty)}, nil
	}

	if len(f) != 5 {
		return fail("LO needs exactly one price")
	}
	price, err := strconv.ParseUint(f[4], 10, 64)
	if err != nil {
		return fail("bad price %q", f[4])
	}
	return Command{Kind: Submit, Order: orderbook.NewLimit(id, side, qty, price)}, nil
}

// Format is the inverse of Parse.
func Format(c Command) string {
	switch c.Kind {
	case Submit:
		o := c.Order
		if price, ok := o.Kind.Price(); ok {
			return fmt.Sprintf("SUB LO %s %s %d %d", o.Side, o.ID, o.Qty, price)
		}
		return fmt.Sprintf("SUB MO %s %s %d", o.Side, o.ID, o.Qty)
	case Cancel:
		return "CXL " + string(c.ID)
	case End:
		return "END"
	default:
		return ""
	}
}
