package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Query string parameter names.
const (
	ParamID           = "id"
	ParamMinUsage     = "min_usage"
	ParamMinRSSKB     = "min_rss_kb"
	ParamMinRuntimeMS = "min_runtime_ms"
	ParamSettleMS     = "settle_ms"
)

// ParseValues builds a Filter from query string values. Absent or empty
// parameters stay unset; malformed ones return ErrInvalidFilter.
func ParseValues(v url.Values) (Filter, error) {
	var f Filter

	if s := strings.TrimSpace(v.Get(ParamID)); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: %s must be an integer", ErrInvalidFilter, ParamID)
		}
		f.PID = &id
	}

	if s := strings.TrimSpace(v.Get(ParamMinUsage)); s != "" {
		usage, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: %s must be a number", ErrInvalidFilter, ParamMinUsage)
		}
		f.MinUsage = &usage
	}

	var err error
	if f.MinRSSKB, err = parseUint(v, ParamMinRSSKB); err != nil {
		return Filter{}, err
	}
	if f.MinRuntimeMS, err = parseUint(v, ParamMinRuntimeMS); err != nil {
		return Filter{}, err
	}
	if f.SettleMS, err = parseUint(v, ParamSettleMS); err != nil {
		return Filter{}, err
	}

	return f, nil
}

func parseUint(v url.Values, key string) (*uint64, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a non-negative integer", ErrInvalidFilter, key)
	}
	return &n, nil
}

// Values is the inverse of ParseValues.
func (f Filter) Values() url.Values {
	v := url.Values{}
	if f.PID != nil {
		v.Set(ParamID, strconv.FormatInt(*f.PID, 10))
	}
	if f.MinUsage != nil {
		v.Set(ParamMinUsage, strconv.FormatFloat(*f.MinUsage, 'f', -1, 64))
	}
	if f.MinRSSKB != nil {
		v.Set(ParamMinRSSKB, strconv.FormatUint(*f.MinRSSKB, 10))
	}
	if f.MinRuntimeMS != nil {
		v.Set(ParamMinRuntimeMS, strconv.FormatUint(*f.MinRuntimeMS, 10))
	}
	if f.SettleMS != nil {
		v.Set(ParamSettleMS, strconv.FormatUint(*f.SettleMS, 10))
	}
	return v
}
