package document

import (
	"golang.org/x/text/unicode/bidi"
)

// Shaper transforma texto de derecha a izquierda en orden visual listo para una superficie LTR
type Shaper interface {
	Shape(text string) string
}

// HasRightToLeft true si el texto contiene algún carácter de escritura RTL (hebreo, árabe, ...)
func HasRightToLeft(text string) bool {
	for _, r := range text {
		if isRTLClass(classOf(r)) {
			return true
		}
	}
	return false
}

func classOf(r rune) bidi.Class {
	props, _ := bidi.LookupRune(r)
	return props.Class()
}

func isRTLClass(c bidi.Class) bool {
	return c == bidi.R || c == bidi.AL
}

// BidiShaper aplica formas contextuales árabes y luego reordena por niveles bidi
type BidiShaper struct{}

func (BidiShaper) Shape(text string) string {
	if text == "" {
		return text
	}
	return VisualOrder(JoinArabic(text))
}

var mirrors = map[rune]rune{
	'(': ')', ')': '(',
	'[': ']', ']': '[',
	'{': '}', '}': '{',
	'<': '>', '>': '<',
	'«': '»', '»': '«',
	'‹': '›', '›': '‹',
}

// VisualOrder reordena una línea lógica a orden visual.
// Cubre los tipos de carácter que aparecen en datos de clientes y catálogos; no procesa
// caracteres de embedding ni isolates explícitos.
func VisualOrder(text string) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return text
	}

	classes := make([]bidi.Class, len(runes))
	for i, r := range runes {
		classes[i] = classOf(r)
	}

	base := paragraphLevel(classes)
	resolveWeak(classes, base)
	resolveNeutral(classes, base)
	levels := resolveImplicit(classes, base)

	// L1: espacios al final de la línea vuelven al nivel del párrafo
	for i := len(runes) - 1; i >= 0; i-- {
		if !isWhitespace(classOf(runes[i])) {
			break
		}
		levels[i] = base
	}

	reorder(runes, levels)

	// L4: espejado de paréntesis en niveles impares
	for i, r := range runes {
		if levels[i]%2 == 1 {
			if m, ok := mirrors[r]; ok {
				runes[i] = m
			}
		}
	}
	return string(runes)
}

// paragraphLevel P2/P3: primer carácter fuerte decide la dirección
func paragraphLevel(classes []bidi.Class) int {
	for _, c := range classes {
		switch c {
		case bidi.L:
			return 0
		case bidi.R, bidi.AL:
			return 1
		}
	}
	return 0
}

func isWhitespace(c bidi.Class) bool {
	return c == bidi.WS || c == bidi.S || c == bidi.B || c == bidi.BN
}

func isNeutral(c bidi.Class) bool {
	return c == bidi.WS || c == bidi.ON || c == bidi.S || c == bidi.B || c == bidi.BN
}

func embeddingClass(level int) bidi.Class {
	if level%2 == 1 {
		return bidi.R
	}
	return bidi.L
}

// resolveWeak reglas W1-W7
func resolveWeak(classes []bidi.Class, base int) {
	sos := embeddingClass(base)

	// W1: NSM toma la clase anterior
	prev := sos
	for i, c := range classes {
		if c == bidi.NSM {
			classes[i] = prev
		} else {
			prev = classes[i]
		}
	}

	// W2 y W3
	lastStrong := sos
	for i, c := range classes {
		switch c {
		case bidi.L, bidi.R:
			lastStrong = c
		case bidi.AL:
			lastStrong = bidi.AL
			classes[i] = bidi.R
		case bidi.EN:
			if lastStrong == bidi.AL {
				classes[i] = bidi.AN
			}
		}
	}

	// W4: un separador entre dos números del mismo tipo
	for i := 1; i+1 < len(classes); i++ {
		c := classes[i]
		before, after := classes[i-1], classes[i+1]
		if c == bidi.ES && before == bidi.EN && after == bidi.EN {
			classes[i] = bidi.EN
		} else if c == bidi.CS && before == after && (before == bidi.EN || before == bidi.AN) {
			classes[i] = before
		}
	}

	// W5: terminadores pegados a números europeos
	for i := 0; i < len(classes); i++ {
		if classes[i] != bidi.ET {
			continue
		}
		j := i
		for j < len(classes) && classes[j] == bidi.ET {
			j++
		}
		if (i > 0 && classes[i-1] == bidi.EN) || (j < len(classes) && classes[j] == bidi.EN) {
			for k := i; k < j; k++ {
				classes[k] = bidi.EN
			}
		}
		i = j - 1
	}

	// W6: separadores y terminadores restantes son neutros
	for i, c := range classes {
		if c == bidi.ES || c == bidi.ET || c == bidi.CS {
			classes[i] = bidi.ON
		}
	}

	// W7: EN con contexto L pasa a L
	lastStrong = sos
	for i, c := range classes {
		switch c {
		case bidi.L, bidi.R:
			lastStrong = c
		case bidi.EN:
			if lastStrong == bidi.L {
				classes[i] = bidi.L
			}
		}
	}
}

// resolveNeutral reglas N1-N2; los números cuentan como R
func resolveNeutral(classes []bidi.Class, base int) {
	strongOf := func(c bidi.Class) (bidi.Class, bool) {
		switch c {
		case bidi.L:
			return bidi.L, true
		case bidi.R, bidi.EN, bidi.AN:
			return bidi.R, true
		}
		return 0, false
	}

	e := embeddingClass(base)
	for i := 0; i < len(classes); i++ {
		if !isNeutral(classes[i]) {
			continue
		}
		j := i
		for j < len(classes) && isNeutral(classes[j]) {
			j++
		}

		before := e
		if i > 0 {
			if s, ok := strongOf(classes[i-1]); ok {
				before = s
			}
		}
		after := e
		if j < len(classes) {
			if s, ok := strongOf(classes[j]); ok {
				after = s
			}
		}

		resolved := e
		if before == after {
			resolved = before
		}
		for k := i; k < j; k++ {
			classes[k] = resolved
		}
		i = j - 1
	}
}

// resolveImplicit reglas I1-I2
func resolveImplicit(classes []bidi.Class, base int) []int {
	levels := make([]int, len(classes))
	for i, c := range classes {
		level := base
		if base%2 == 0 {
			switch c {
			case bidi.R:
				level++
			case bidi.AN, bidi.EN:
				level += 2
			}
		} else {
			switch c {
			case bidi.L, bidi.EN, bidi.AN:
				level++
			}
		}
		levels[i] = level
	}
	return levels
}

// reorder L2: invierte secuencias desde el nivel más alto hasta el menor nivel impar
func reorder(runes []rune, levels []int) {
	highest, lowestOdd := 0, -1
	for _, l := range levels {
		if l > highest {
			highest = l
		}
		if l%2 == 1 && (lowestOdd == -1 || l < lowestOdd) {
			lowestOdd = l
		}
	}
	if lowestOdd == -1 {
		return
	}

	for level := highest; level >= lowestOdd; level-- {
		for i := 0; i < len(runes); i++ {
			if levels[i] < level {
				continue
			}
			j := i
			for j < len(runes) && levels[j] >= level {
				j++
			}
			reverseRange(runes, levels, i, j-1)
			i = j
		}
	}
}

func reverseRange(runes []rune, levels []int, i, j int) {
	for ; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
		levels[i], levels[j] = levels[j], levels[i]
	}
}
