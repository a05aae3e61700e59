package document

type joiningType uint8

const (
	joinRight joiningType = iota + 1 // solo se une con la letra anterior
	joinDual                         // se une por ambos lados
	joinNone
)

// arabicForm formas de presentación: aislada, final, inicial, media
type arabicForm struct {
	join                             joiningType
	isolated, final, initial, medial rune
}

var arabicForms = map[rune]arabicForm{
	0x0621: {joinNone, 0xFE80, 0, 0, 0},
	0x0622: {joinRight, 0xFE81, 0xFE82, 0, 0},
	0x0623: {joinRight, 0xFE83, 0xFE84, 0, 0},
	0x0624: {joinRight, 0xFE85, 0xFE86, 0, 0},
	0x0625: {joinRight, 0xFE87, 0xFE88, 0, 0},
	0x0626: {joinDual, 0xFE89, 0xFE8A, 0xFE8B, 0xFE8C},
	0x0627: {joinRight, 0xFE8D, 0xFE8E, 0, 0},
	0x0628: {joinDual, 0xFE8F, 0xFE90, 0xFE91, 0xFE92},
	0x0629: {joinRight, 0xFE93, 0xFE94, 0, 0},
	0x062A: {joinDual, 0xFE95, 0xFE96, 0xFE97, 0xFE98},
	0x062B: {joinDual, 0xFE99, 0xFE9A, 0xFE9B, 0xFE9C},
	0x062C: {joinDual, 0xFE9D, 0xFE9E, 0xFE9F, 0xFEA0},
	0x062D: {joinDual, 0xFEA1, 0xFEA2, 0xFEA3, 0xFEA4},
	0x062E: {joinDual, 0xFEA5, 0xFEA6, 0xFEA7, 0xFEA8},
	0x062F: {joinRight, 0xFEA9, 0xFEAA, 0, 0},
	0x0630: {joinRight, 0xFEAB, 0xFEAC, 0, 0},
	0x0631: {joinRight, 0xFEAD, 0xFEAE, 0, 0},
	0x0632: {joinRight, 0xFEAF, 0xFEB0, 0, 0},
	0x0633: {joinDual, 0xFEB1, 0xFEB2, 0xFEB3, 0xFEB4},
	0x0634: {joinDual, 0xFEB5, 0xFEB6, 0xFEB7, 0xFEB8},
	0x0635: {joinDual, 0xFEB9, 0xFEBA, 0xFEBB, 0xFEBC},
	0x0636: {joinDual, 0xFEBD, 0xFEBE, 0xFEBF, 0xFEC0},
	0x0637: {joinDual, 0xFEC1, 0xFEC2, 0xFEC3, 0xFEC4},
	0x0638: {joinDual, 0xFEC5, 0xFEC6, 0xFEC7, 0xFEC8},
	0x0639: {joinDual, 0xFEC9, 0xFECA, 0xFECB, 0xFECC},
	0x063A: {joinDual, 0xFECD, 0xFECE, 0xFECF, 0xFED0},
	0x0640: {joinDual, 0x0640, 0x0640, 0x0640, 0x0640},
	0x0641: {joinDual, 0xFED1, 0xFED2, 0xFED3, 0xFED4},
	0x0642: {joinDual, 0xFED5, 0xFED6, 0xFED7, 0xFED8},
	0x0643: {joinDual, 0xFED9, 0xFEDA, 0xFEDB, 0xFEDC},
	0x0644: {joinDual, 0xFEDD, 0xFEDE, 0xFEDF, 0xFEE0},
	0x0645: {joinDual, 0xFEE1, 0xFEE2, 0xFEE3, 0xFEE4},
	0x0646: {joinDual, 0xFEE5, 0xFEE6, 0xFEE7, 0xFEE8},
	0x0647: {joinDual, 0xFEE9, 0xFEEA, 0xFEEB, 0xFEEC},
	0x0648: {joinRight, 0xFEED, 0xFEEE, 0, 0},
	0x0649: {joinRight, 0xFEEF, 0xFEF0, 0, 0},
	0x064A: {joinDual, 0xFEF1, 0xFEF2, 0xFEF3, 0xFEF4},
	// persa / urdu
	0x067E: {joinDual, 0xFB56, 0xFB57, 0xFB58, 0xFB59},
	0x0686: {joinDual, 0xFB7A, 0xFB7B, 0xFB7C, 0xFB7D},
	0x0698: {joinRight, 0xFB8A, 0xFB8B, 0, 0},
	0x06A9: {joinDual, 0xFB8E, 0xFB8F, 0xFB90, 0xFB91},
	0x06AF: {joinDual, 0xFB92, 0xFB93, 0xFB94, 0xFB95},
	0x06CC: {joinDual, 0xFBFC, 0xFBFD, 0xFBFE, 0xFBFF},
}

// ligaduras lam-alef: aislada, final
var lamAlef = map[rune][2]rune{
	0x0622: {0xFEF5, 0xFEF6},
	0x0623: {0xFEF7, 0xFEF8},
	0x0625: {0xFEF9, 0xFEFA},
	0x0627: {0xFEFB, 0xFEFC},
}

const lam = 0x0644

// isTransparent marcas diacríticas que no cortan la unión
func isTransparent(r rune) bool {
	return (r >= 0x064B && r <= 0x065F) || r == 0x0670 || (r >= 0x06D6 && r <= 0x06ED)
}

// JoinArabic reemplaza cada letra árabe por su forma contextual en orden lógico
func JoinArabic(text string) string {
	runes := []rune(text)
	out := make([]rune, 0, len(runes))

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		form, ok := arabicForms[r]
		if !ok {
			out = append(out, r)
			continue
		}

		prevJoins := false
		if p := neighbour(runes, i, -1); p >= 0 {
			prevJoins = arabicForms[runes[p]].join == joinDual
		}

		next := neighbour(runes, i, 1)

		if r == lam && next >= 0 {
			if lig, ok := lamAlef[runes[next]]; ok {
				if prevJoins {
					out = append(out, lig[1])
				} else {
					out = append(out, lig[0])
				}
				// conserva diacríticos entre lam y alef
				out = append(out, runes[i+1:next]...)
				i = next
				continue
			}
		}

		nextJoins := false
		if form.join == joinDual && next >= 0 {
			if nf, ok := arabicForms[runes[next]]; ok && nf.join != joinNone {
				nextJoins = true
			}
		}
		if form.join == joinNone {
			prevJoins = false
		}

		switch {
		case prevJoins && nextJoins:
			out = append(out, form.medial)
		case prevJoins:
			out = append(out, form.final)
		case nextJoins:
			out = append(out, form.initial)
		default:
			out = append(out, form.isolated)
		}
	}
	return string(out)
}

// neighbour índice de la letra árabe vecina en la dirección dada, saltando diacríticos; -1 si no hay
func neighbour(runes []rune, i, step int) int {
	for j := i + step; j >= 0 && j < len(runes); j += step {
		if isTransparent(runes[j]) {
			continue
		}
		if _, ok := arabicForms[runes[j]]; ok {
			return j
		}
		return -1
	}
	return -1
}
