package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/orders"
)

// MaxCallbackData is Telegram's limit on callback_data.
const MaxCallbackData = 64

var (
	ErrUnknownCommand   = errors.New("unknown callback command")
	ErrMalformedCommand = errors.New("malformed callback command")
	ErrCommandTooLong   = errors.New("callback command exceeds 64 bytes")
)

type Action uint8

const (
	ActionCategory Action = iota + 1
	ActionItem
	ActionAdd
	ActionInc
	ActionDec
	ActionRemove
	ActionCart
	ActionClear
	ActionCheckout
	ActionMenu
	ActionOrders
	ActionStatus
)

var actionTags = map[Action]string{
	ActionCategory: "category",
	ActionItem:     "item",
	ActionAdd:      "add",
	ActionInc:      "inc",
	ActionDec:      "dec",
	ActionRemove:   "rm",
	ActionCart:     "cart",
	ActionClear:    "clear",
	ActionCheckout: "checkout",
	ActionMenu:     "menu",
	ActionOrders:   "orders",
	ActionStatus:   "status",
}

var tagActions = func() map[string]Action {
	m := make(map[string]Action, len(actionTags))
	for a, t := range actionTags {
		m[t] = a
	}
	return m
}()

func (a Action) String() string {
	if t, ok := actionTags[a]; ok {
		return t
	}
	return fmt.Sprintf("action(%d)", a)
}

// takesArg reports whether the action carries an item, category, order id
// or checkout nonce.
func (a Action) takesArg() bool {
	switch a {
	case ActionCategory, ActionItem, ActionAdd, ActionInc, ActionDec, ActionRemove, ActionCheckout, ActionStatus:
		return true
	}
	return false
}

// Command is one decoded inline-button press.
// Arg is the item id, category, order id or, for ActionCheckout, the nonce
// minted when the cart was rendered. Status is set only for ActionStatus.
type Command struct {
	Action Action
	Arg    string
	Status orders.Status
}

func (c Command) Encode() (string, error) {
	tag, ok := actionTags[c.Action]
	if !ok {
		return "", ErrUnknownCommand
	}
	var s string
	switch {
	case c.Action == ActionStatus:
		if c.Arg == "" || strings.Contains(c.Arg, ":") || !c.Status.Valid() {
			return "", ErrMalformedCommand
		}
		s = tag + ":" + c.Arg + ":" + string(c.Status)
	case c.Action.takesArg():
		if c.Arg == "" || strings.Contains(c.Arg, ":") {
			return "", ErrMalformedCommand
		}
		s = tag + ":" + c.Arg
	default:
		s = tag
	}
	if len(s) > MaxCallbackData {
		return "", ErrCommandTooLong
	}
	return s, nil
}

func ParseCommand(data string) (Command, error) {
	if len(data) > MaxCallbackData {
		return Command{}, ErrCommandTooLong
	}
	parts := strings.Split(data, ":")
	a, ok := tagActions[parts[0]]
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, parts[0])
	}
	c := Command{Action: a}
	switch {
	case a == ActionStatus:
		if len(parts) != 3 || parts[1] == "" {
			return Command{}, fmt.Errorf("%w: %q", ErrMalformedCommand, data)
		}
		st, err := orders.ParseStatus(parts[2])
		if err != nil {
			return Command{}, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
		}
		c.Arg, c.Status = parts[1], st
	case a.takesArg():
		if len(parts) != 2 || parts[1] == "" {
			return Command{}, fmt.Errorf("%w: %q", ErrMalformedCommand, data)
		}
		c.Arg = parts[1]
	default:
		if len(parts) != 1 {
			return Command{}, fmt.Errorf("%w: %q", ErrMalformedCommand, data)
		}
	}
	return c, nil
}

// data encodes commands built from trusted ids; a failure is a programming error.
func data(c Command) string {
	s, err := c.Encode()
	if err != nil {
		panic(fmt.Sprintf("bot: encode %s %q: %v", c.Action, c.Arg, err))
	}
	return s
}
