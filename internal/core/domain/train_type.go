package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// TrainType is the service class of a train.
type TrainType int

const (
	TrainTypeUnknown TrainType = iota
	TrainTypeTaroko
	TrainTypePuyuma
	TrainTypeEMU3000
	TrainTypeTzeChiang
	TrainTypeChuKuang
	TrainTypeFuHsing
	TrainTypeFastLocal
	TrainTypeLocal
	TrainTypeOrdinary
	TrainTypeTour
)

// TrainTypeCode groups train types the way passengers filter them.
type TrainTypeCode int

const (
	TrainTypeCodeOther TrainTypeCode = iota
	TrainTypeCodeExpress
	TrainTypeCodeChuKuang
	TrainTypeCodeLocal
)

type trainTypeInfo struct {
	t      TrainType
	slug   string
	zh     string // prefix as it appears once digits are stripped
	en     string
	code   TrainTypeCode
	fareID int
}

// Order matters: longer prefixes sharing a stem come first.
var trainTypes = []trainTypeInfo{
	{TrainTypeTaroko, "taroko", "太魯閣", "Taroko", TrainTypeCodeExpress, 1},
	{TrainTypePuyuma, "puyuma", "普悠瑪", "Puyuma", TrainTypeCodeExpress, 2},
	{TrainTypeEMU3000, "emu3000", "自強()", "Tze-Chiang (EMU3000)", TrainTypeCodeExpress, 3},
	{TrainTypeTzeChiang, "tze_chiang", "自強", "Tze-Chiang", TrainTypeCodeExpress, 3},
	{TrainTypeChuKuang, "chu_kuang", "莒光", "Chu-Kuang", TrainTypeCodeChuKuang, 4},
	{TrainTypeFuHsing, "fu_hsing", "復興", "Fu-Hsing", TrainTypeCodeLocal, 5},
	{TrainTypeFastLocal, "fast_local", "區間快", "Fast Local", TrainTypeCodeLocal, 10},
	{TrainTypeLocal, "local", "區間", "Local", TrainTypeCodeLocal, 6},
	{TrainTypeOrdinary, "ordinary", "普快", "Ordinary", TrainTypeCodeLocal, 7},
	{TrainTypeTour, "tour", "觀光", "Tour", TrainTypeCodeOther, 0},
}

func (t TrainType) info() (trainTypeInfo, bool) {
	for _, info := range trainTypes {
		if info.t == t {
			return info, true
		}
	}
	return trainTypeInfo{}, false
}

// TrainTypeFromZh maps the localized label of a train type. Digits are ignored so
// "自強(3000)" and "自強()" resolve alike. Unrecognised text yields TrainTypeUnknown.
func TrainTypeFromZh(label string) TrainType {
	clean := strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return -1
		}
		return r
	}, label))
	if clean == "" {
		return TrainTypeUnknown
	}
	for _, info := range trainTypes {
		if strings.HasPrefix(clean, info.zh) {
			return info.t
		}
	}
	return TrainTypeUnknown
}

// Name returns the bilingual display name.
func (t TrainType) Name() Name {
	if info, ok := t.info(); ok {
		return Name{En: info.en, Zh: strings.TrimSuffix(info.zh, "()")}
	}
	return Name{En: "Unknown", Zh: "未知"}
}

// Code returns the filter group.
func (t TrainType) Code() TrainTypeCode {
	if info, ok := t.info(); ok {
		return info.code
	}
	return TrainTypeCodeOther
}

// FareCategory returns the train type id used by the fare endpoint.
func (t TrainType) FareCategory() int {
	if info, ok := t.info(); ok {
		return info.fareID
	}
	return 0
}

func (t TrainType) String() string {
	if info, ok := t.info(); ok {
		return info.slug
	}
	return "unknown"
}

// MarshalText encodes the type as its slug.
func (t TrainType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a slug produced by MarshalText.
func (t *TrainType) UnmarshalText(b []byte) error {
	s := string(b)
	if s == "unknown" || s == "" {
		*t = TrainTypeUnknown
		return nil
	}
	for _, info := range trainTypes {
		if info.slug == s {
			*t = info.t
			return nil
		}
	}
	return fmt.Errorf("unknown train type %q", s)
}

// ParseTrainTypeCode parses a filter group name.
func ParseTrainTypeCode(s string) (TrainTypeCode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "express":
		return TrainTypeCodeExpress, nil
	case "chu_kuang", "chukuang":
		return TrainTypeCodeChuKuang, nil
	case "local":
		return TrainTypeCodeLocal, nil
	case "other":
		return TrainTypeCodeOther, nil
	}
	return 0, fmt.Errorf("unknown train type code %q", s)
}
