package pcfg

// HashChecker tests a single mangled guess against a caller-supplied
// challenge/hash, returning true on match. The concrete hash algorithm
// and challenge format are the caller's concern, not this package's.
//
// Implementations must be pure and side-effect free beyond CPU time; the
// worker calls a HashChecker once per mangled guess.
type HashChecker func(guess string) bool

// Crack drives a preterminal through the guesser and mangling engine and
// calls check against every resulting guess, stopping at the first match.
// It returns the total number of guesses hashed and, if one matched, the
// plaintext that matched.
func Crack(preterminal string, glossary Glossary, engine *ManglingEngine, check HashChecker) (attempts int, solution string, found bool) {
	guesser := NewPreterminalGuesser(preterminal, glossary)
	for {
		terminal, ok := guesser.Next()
		if !ok {
			break
		}
		it := engine.Iterate(terminal)
		for {
			variant, ok := it.Next()
			if !ok {
				break
			}
			attempts++
			if check(variant) {
				return attempts, variant, true
			}
		}
	}
	return attempts, "", false
}
