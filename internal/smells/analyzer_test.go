package smells_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/synapse/internal/adapters"
	"github.com/xkilldash9x/synapse/internal/smells"
)

func TestAnalyze(t *testing.T) {
	t.Parallel()

	longJS := strings.Repeat("let a = 1;\n", 51)

	tests := []struct {
		name    string
		profile string
		code    string
		want    []string
	}{
		{
			name:    "empty code has no findings",
			profile: "javascript",
			code:    "",
			want:    []string{},
		},
		{
			name:    "clean javascript",
			profile: "javascript",
			code:    "const add = (a, b) => a + b;",
			want:    []string{},
		},
		{
			name:    "legacy var and console",
			profile: "javascript",
			code:    "function test() { var x = 1; console.log(x); }",
			want:    []string{smells.LegacyVar, smells.DebugConsoleLog},
		},
		{
			name:    "var inside identifier is not flagged",
			profile: "javascript",
			code:    "const variance = 2;",
			want:    []string{},
		},
		{
			name:    "nesting across lines",
			profile: "javascript",
			code:    "for (let i = 0; i < n; i++) {\n  if (i % 2) {\n    go();\n  }\n}",
			want:    []string{smells.DeepNesting},
		},
		{
			name:    "too long comes first",
			profile: "javascript",
			code:    longJS + "var z;",
			want:    []string{smells.TooLong, smells.LegacyVar},
		},
		{
			name:    "react inherits ecmascript rules and adds hooks",
			profile: "react",
			code:    "useEffect(() => {\n  console.log('mounted');\n})",
			want:    []string{smells.DebugConsoleLog, smells.MissingDepsArray},
		},
		{
			name:    "react with deps array",
			profile: "react",
			code:    "useEffect(() => { load(); }, [id])",
			want:    []string{},
		},
		{
			name:    "python bare except and print",
			profile: "python",
			code:    "try:\n    run()\nexcept:\n    print('oops')",
			want:    []string{smells.BareExcept, smells.PrintStatement},
		},
		{
			name:    "python ignores javascript rules",
			profile: "python",
			code:    "var = 1\nconsole.log",
			want:    []string{},
		},
		{
			name:    "java println and empty catch",
			profile: "java",
			code:    "try { run(); } catch (Exception e) { }\nSystem.out.println(\"x\");",
			want:    []string{smells.SystemOutPrint, smells.EmptyCatch},
		},
		{
			name:    "java non-empty catch",
			profile: "java",
			code:    "try { run(); } catch (IOException e) { log(e); }",
			want:    []string{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := smells.Analyze(tt.code, adapters.Lookup(tt.profile))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnalyze_ExactlyFiftyLinesIsNotLong(t *testing.T) {
	t.Parallel()
	code := strings.TrimSuffix(strings.Repeat("x = 1\n", 50), "\n")
	assert.NotContains(t, smells.Analyze(code, adapters.Lookup("python")), smells.TooLong)
}

// FuzzAnalyze checks the analyzer never panics and always returns the same
// findings for the same input.
func FuzzAnalyze(f *testing.F) {
	f.Add("function test() { var x = 1; }", "javascript")
	f.Add("except:\n print(1)", "python")
	f.Add("", "")
	f.Add("catch (E e) {}", "java")

	f.Fuzz(func(t *testing.T, code, language string) {
		profile := adapters.Lookup(language)
		first := smells.Analyze(code, profile)
		second := smells.Analyze(code, profile)
		assert.Equal(t, first, second)
		assert.NotNil(t, first)
	})
}
