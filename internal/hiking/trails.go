package hiking

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrUnknownTrail  = errors.New("unknown trail code")
	ErrBadStageLabel = errors.New("malformed stage label")
)

// Trail identifies one of the named long-distance trails a stage belongs to.
type Trail int

const (
	CoastToCoast Trail = iota + 1
	NorthSouth
	RidgeToRidge
	Osterlen
	Oresund
)

var trailNames = map[Trail]string{
	CoastToCoast: "Kust-kustleden",
	NorthSouth:   "Nord-sydleden",
	RidgeToRidge: "Ås-åsleden",
	Osterlen:     "Österlenleden",
	Oresund:      "Öresundsleden",
}

func (t Trail) String() string {
	if n, ok := trailNames[t]; ok {
		return n
	}
	return fmt.Sprintf("Trail(%d)", int(t))
}

// ParseTrail maps a numeric trail code to a Trail.
func ParseTrail(code string) (Trail, error) {
	n, err := strconv.Atoi(code)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTrail, code)
	}
	t := Trail(n)
	if _, ok := trailNames[t]; !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTrail, code)
	}
	return t, nil
}

// Stage is a parsed stage label "<trail>_<stage>".
type Stage struct {
	Trail  Trail
	Number string
}

func ParseStage(label string) (Stage, error) {
	code, num, ok := strings.Cut(label, "_")
	if !ok || code == "" || num == "" {
		return Stage{}, fmt.Errorf("%w: %q", ErrBadStageLabel, label)
	}
	t, err := ParseTrail(code)
	if err != nil {
		return Stage{}, err
	}
	return Stage{Trail: t, Number: num}, nil
}

// JoinLabels joins stage labels in order, dropping empty and repeated ones.
func JoinLabels(labels []string) string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return strings.Join(out, ";")
}

// SplitLabels is the inverse of JoinLabels.
func SplitLabels(s string) []string {
	var out []string
	for _, l := range strings.Split(s, ";") {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

func reverseLabels(s string) string {
	labels := SplitLabels(s)
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
	return strings.Join(labels, ";")
}

// Describe renders a ";"-joined stage label list as a human readable trail
// summary, e.g. "Kust-kustleden etapp 3, Öresundsleden etapp 1, 2".
// Trails are listed by code and stages in ascending order.
func Describe(labels string) (string, error) {
	byTrail := make(map[Trail][]string)
	for _, l := range SplitLabels(labels) {
		st, err := ParseStage(l)
		if err != nil {
			return "", err
		}
		byTrail[st.Trail] = append(byTrail[st.Trail], st.Number)
	}
	trails := make([]Trail, 0, len(byTrail))
	for t := range byTrail {
		trails = append(trails, t)
	}
	sort.Slice(trails, func(i, j int) bool { return trails[i] < trails[j] })

	parts := make([]string, 0, len(trails))
	for _, t := range trails {
		nums := uniq(byTrail[t])
		sort.Slice(nums, func(i, j int) bool { return stageLess(nums[i], nums[j]) })
		parts = append(parts, fmt.Sprintf("%s etapp %s", t, strings.Join(nums, ", ")))
	}
	return strings.Join(parts, ", "), nil
}

func uniq(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// stageLess orders numeric stage numbers numerically and anything else lexically.
func stageLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}
