package decoder

import (
	"encoding/json"
	"fmt"
)

// PayloadMode selects which measurement a data frame carries.
type PayloadMode int

const (
	TimingMode PayloadMode = iota
	CounterAMode
	CounterBMode
)

type BoardMode struct {
	Name string
	Code PayloadMode
}

var boardModeStrings = []string{
	"timing",
	"counter_a",
	"counter_b",
}

func (m PayloadMode) String() string {
	if m < TimingMode || m > CounterBMode {
		return "UNKNOWN"
	}
	return boardModeStrings[m]
}

func (b BoardMode) String() string {
	return b.Code.String()
}

func ParseBoardMode(s string) (BoardMode, error) {
	for i, v := range boardModeStrings {
		if v == s {
			return BoardMode{Name: s, Code: PayloadMode(i)}, nil
		}
	}
	return BoardMode{}, fmt.Errorf("invalid BoardMode: %s", s)
}

func (b BoardMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *BoardMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	mode, err := ParseBoardMode(s)
	if err != nil {
		return err
	}
	*b = mode
	return nil
}
