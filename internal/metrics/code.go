package metrics

import (
	"go/parser"
	"go/token"
	"regexp"
	"strings"
)

// securityPattern flags one dangerous construct in generated code.
type securityPattern struct {
	name        string
	pattern     *regexp.Regexp
	description string
}

var securityPatterns = []securityPattern{
	{"eval", regexp.MustCompile(`\beval\s*\(`), "eval() can execute arbitrary code"},
	{"exec", regexp.MustCompile(`\bexec\s*\(`), "exec() can execute arbitrary code"},
	{"subprocess", regexp.MustCompile(`\bsubprocess\b`), "subprocess can run arbitrary shell commands"},
	{"os.system", regexp.MustCompile(`\bos\s*\.\s*system\s*\(`), "os.system() can run arbitrary shell commands"},
	{"os.popen", regexp.MustCompile(`\bos\s*\.\s*popen\s*\(`), "os.popen() can run arbitrary shell commands"},
	{"os/exec", regexp.MustCompile(`\bos/exec\b|\bexec\s*\.\s*Command\s*\(`), "exec.Command can run arbitrary shell commands"},
	{"__import__", regexp.MustCompile(`\b__import__\s*\(`), "__import__() can import arbitrary modules"},
	{"pickle.loads", regexp.MustCompile(`\bpickle\s*\.\s*loads?\s*\(`), "unpickling untrusted data can execute arbitrary code"},
	{"marshal.loads", regexp.MustCompile(`\bmarshal\s*\.\s*loads?\s*\(`), "unmarshalling untrusted data is unsafe"},
	{"ctypes", regexp.MustCompile(`\bctypes\b`), "ctypes provides low-level memory access"},
	{"unsafe", regexp.MustCompile(`\bunsafe\s*\.\s*Pointer\b`), "unsafe.Pointer bypasses type safety"},
	{"shutil.rmtree", regexp.MustCompile(`\bshutil\s*\.\s*rmtree\s*\(`), "shutil.rmtree() can recursively delete directories"},
	{"os.RemoveAll", regexp.MustCompile(`\bos\s*\.\s*RemoveAll\s*\(`), "os.RemoveAll() can recursively delete directories"},
}

var (
	codeBlockRe  = regexp.MustCompile("```[\\s\\S]*?```")
	fencedHeadRe = regexp.MustCompile("```([a-zA-Z0-9+]*)[ \t]*\\n([\\s\\S]*?)```")
)

// Code scores code-generation outputs: fenced-block presence, syntax
// validity, a security scan, and pass@k when sample outcomes are known.
type Code struct{}

// Evaluate analyses one output. Boolean checks are reported as 0/1 so
// the whole family fits the shared metric map shape. pass_at_k is only
// present when test outcomes are supplied.
func (Code) Evaluate(output string, testResults []bool) map[string]float64 {
	code, lang := extractCode(output)
	issues := scanSecurity(code)

	out := map[string]float64{
		"has_code_block": boolMetric(codeBlockRe.MatchString(output)),
		"syntax_valid":   boolMetric(checkSyntax(code, lang)),
		"security_score": securityScore(len(issues)),
	}
	if testResults != nil {
		n := len(testResults)
		c := 0
		for _, passed := range testResults {
			if passed {
				c++
			}
		}
		out["pass_at_k"] = PassAtK(n, c, 1)
	}
	return out
}

func (cd Code) EvaluateBatch(outputs []string) map[string]float64 {
	results := make([]map[string]float64, len(outputs))
	for i, o := range outputs {
		results[i] = cd.Evaluate(o, nil)
	}
	return averageMaps(results)
}

// EvaluatePassAtK computes pass@k from one problem's sample outcomes.
func (Code) EvaluatePassAtK(testResults []bool, k int) float64 {
	c := 0
	for _, passed := range testResults {
		if passed {
			c++
		}
	}
	return PassAtK(len(testResults), c, k)
}

// SecurityIssues returns the dangerous-pattern descriptions found in
// the output's code.
func (Code) SecurityIssues(output string) []string {
	code, _ := extractCode(output)
	return scanSecurity(code)
}

func boolMetric(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

// extractCode concatenates fenced block bodies, falling back to the
// whole output when no fence is present. The second return is the
// language tag of the first fence, if any.
func extractCode(output string) (string, string) {
	matches := fencedHeadRe.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		return output, ""
	}
	lang := strings.ToLower(matches[0][1])
	bodies := make([]string, len(matches))
	for i, m := range matches {
		bodies[i] = m[2]
	}
	return strings.Join(bodies, "\n\n"), lang
}

// checkSyntax parses Go code with the real parser; for other languages
// it falls back to a balanced-delimiter check, which catches the common
// truncation failures of generation systems.
func checkSyntax(code, lang string) bool {
	if strings.TrimSpace(code) == "" {
		return false
	}
	if lang == "go" || lang == "golang" {
		return goParses(code)
	}
	return balancedDelimiters(code)
}

func goParses(code string) bool {
	src := code
	if !strings.Contains(code, "package ") {
		src = "package main\n\n" + code
	}
	if _, err := parser.ParseFile(token.NewFileSet(), "generated.go", src, 0); err == nil {
		return true
	}
	// A bare statement list is still valid generated code.
	wrapped := "package main\n\nfunc main() {\n" + code + "\n}"
	_, err := parser.ParseFile(token.NewFileSet(), "generated.go", wrapped, 0)
	return err == nil
}

func balancedDelimiters(code string) bool {
	var stack []rune
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}
	inString := rune(0)
	escaped := false
	for _, r := range code {
		if inString != 0 {
			if escaped {
				escaped = false
				continue
			}
			switch r {
			case '\\':
				escaped = true
			case inString:
				inString = 0
			}
			continue
		}
		switch r {
		case '"', '\'', '`':
			inString = r
		case '(', '[', '{':
			stack = append(stack, r)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[r] {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}

func scanSecurity(code string) []string {
	var issues []string
	for _, sp := range securityPatterns {
		if sp.pattern.MatchString(code) {
			issues = append(issues, sp.name+": "+sp.description)
		}
	}
	return issues
}

// securityScore maps the issue count onto [0,1]: clean code scores 1.0
// and four or more findings bottom out at 0.0.
func securityScore(issues int) float64 {
	switch issues {
	case 0:
		return 1.0
	case 1:
		return 0.7
	case 2:
		return 0.4
	case 3:
		return 0.2
	default:
		return 0.0
	}
}

// PassAtK is the unbiased estimator 1 - C(n-c,k)/C(n,k) from the
// HumanEval methodology, computed in product form for stability.
func PassAtK(n, c, k int) float64 {
	if n < k || c == 0 {
		return 0.0
	}
	if c >= n {
		return 1.0
	}
	// C(n-c,k)/C(n,k) = prod_{i=n-c+1..n} (1 - k/i) when n-c >= k,
	// zero otherwise.
	if n-c < k {
		return 1.0
	}
	prob := 1.0
	for i := n - c + 1; i <= n; i++ {
		prob *= 1.0 - float64(k)/float64(i)
	}
	return 1.0 - prob
}
