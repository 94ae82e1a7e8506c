// Package consolebridge renders host popups on a terminal.
package consolebridge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/MarkoPoloResearchLab/storefront/pkg/storefront"
)

const (
	promptText          = "> "
	cancelLabel         = "Отмена"
	invalidChoiceFormat = "unknown choice %q, try again\n"
)

// ErrNilIO marks a bridge built without a reader or writer.
var ErrNilIO = errors.New("console bridge requires input and output")

// Bridge implements storefront.HostBridge over a line-oriented terminal.
type Bridge struct {
	initData string
	output   io.Writer
	input    *bufio.Reader

	readerOnce sync.Once
	lines      chan readResult

	mutex    sync.Mutex
	ready    bool
	expanded bool
}

type readResult struct {
	line string
	err  error
}

// New builds a Bridge that reports initData as the host payload.
func New(initData string, input io.Reader, output io.Writer) (*Bridge, error) {
	if input == nil || output == nil {
		return nil, ErrNilIO
	}
	return &Bridge{initData: initData, output: output, input: bufio.NewReader(input), lines: make(chan readResult)}, nil
}

// Ready records that the client finished bootstrapping.
func (bridge *Bridge) Ready() {
	bridge.mutex.Lock()
	defer bridge.mutex.Unlock()
	bridge.ready = true
}

// Expand is a no-op on a terminal beyond bookkeeping.
func (bridge *Bridge) Expand() {
	bridge.mutex.Lock()
	defer bridge.mutex.Unlock()
	bridge.expanded = true
}

// IsReady reports whether Ready and Expand were both called.
func (bridge *Bridge) IsReady() bool {
	bridge.mutex.Lock()
	defer bridge.mutex.Unlock()
	return bridge.ready && bridge.expanded
}

// InitData returns the configured host payload.
func (bridge *Bridge) InitData() string {
	return bridge.initData
}

// ShowPopup prints the options and reads a button number or id. End of input
// dismisses the popup.
func (bridge *Bridge) ShowPopup(ctx context.Context, options storefront.PopupOptions) (string, error) {
	bridge.render(options)
	for {
		line, err := bridge.readLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", nil
			}
			return "", err
		}
		if buttonID, ok := matchButton(options.Buttons, line); ok {
			return buttonID, nil
		}
		fmt.Fprintf(bridge.output, invalidChoiceFormat, line)
		fmt.Fprint(bridge.output, promptText)
	}
}

func (bridge *Bridge) render(options storefront.PopupOptions) {
	fmt.Fprintln(bridge.output, options.Title)
	fmt.Fprintln(bridge.output, options.Message)
	for index, button := range options.Buttons {
		fmt.Fprintf(bridge.output, "  %d) %s\n", index+1, buttonLabel(button))
	}
	fmt.Fprint(bridge.output, promptText)
}

// readLine waits for the next input line. A single reader goroutine owns the
// input, so a line typed after a cancelled popup goes to the next popup.
func (bridge *Bridge) readLine(ctx context.Context) (string, error) {
	bridge.readerOnce.Do(func() { go bridge.readInput() })
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case read, ok := <-bridge.lines:
		if !ok {
			return "", io.EOF
		}
		return read.line, read.err
	}
}

func (bridge *Bridge) readInput() {
	defer close(bridge.lines)
	for {
		line, err := bridge.input.ReadString('\n')
		if err != nil && line != "" && errors.Is(err, io.EOF) {
			bridge.lines <- readResult{line: strings.TrimSpace(line)}
			return
		}
		bridge.lines <- readResult{line: strings.TrimSpace(line), err: err}
		if err != nil {
			return
		}
	}
}

func matchButton(buttons []storefront.PopupButton, answer string) (string, bool) {
	if number, err := strconv.Atoi(answer); err == nil {
		if number >= 1 && number <= len(buttons) {
			return buttons[number-1].ID, true
		}
		return "", false
	}
	for _, button := range buttons {
		if strings.EqualFold(button.ID, answer) || (button.Text != "" && strings.EqualFold(button.Text, answer)) {
			return button.ID, true
		}
	}
	return "", false
}

func buttonLabel(button storefront.PopupButton) string {
	if button.Text != "" {
		return button.Text
	}
	if button.Type == "cancel" {
		return cancelLabel
	}
	return button.ID
}
