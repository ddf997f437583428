package calc

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var diceRe = regexp.MustCompile(`(?i)^\s*(\d+)?\s*d\s*(\d+)(\s*([+\-x*])\s*(\d+))?\s*$`)

// Roller is the die-rolling dependency; *rand.Rand satisfies it and tests
// substitute a scripted sequence.
type Roller interface {
	Intn(n int) int
}

// RollExpr supports: N, NdM, NdM+K, NdM-K, NdM xK (multiply) / * K
func RollExpr(r Roller, expr string) int {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0
	}
	// raw int
	if n, err := strconv.Atoi(expr); err == nil {
		return n
	}
	m := diceRe.FindStringSubmatch(expr)
	if m == nil {
		return 0
	}
	count := 1
	if m[1] != "" {
		count, _ = strconv.Atoi(m[1])
	}
	sides, _ := strconv.Atoi(m[2])
	total := 0
	for i := 0; i < count; i++ {
		total += 1 + r.Intn(sides)
	}
	if m[3] != "" {
		op := m[4]
		k, _ := strconv.Atoi(m[5])
		switch op {
		case "+":
			total += k
		case "-":
			total -= k
		case "x", "*":
			total *= k
		}
	}
	if total < 0 {
		total = 0
	}
	return total
}

// MaxExpr returns the highest value a dice expression can roll, for
// devastating-wound resolution. Unparseable expressions return 0.
func MaxExpr(expr string) int {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0
	}
	if n, err := strconv.Atoi(expr); err == nil {
		if n < 0 {
			return 0
		}
		return n
	}
	m := diceRe.FindStringSubmatch(expr)
	if m == nil {
		return 0
	}
	count := 1
	if m[1] != "" {
		count, _ = strconv.Atoi(m[1])
	}
	sides, _ := strconv.Atoi(m[2])
	total := count * sides
	if m[3] != "" {
		k, _ := strconv.Atoi(m[5])
		switch m[4] {
		case "+":
			total += k
		case "-":
			total -= k
		case "x", "*":
			total *= k
		}
	}
	if total < 0 {
		total = 0
	}
	return total
}

func NewRNG() *rand.Rand { return rand.New(rand.NewSource(time.Now().UnixNano())) }
