package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradebox/gradebox/rules"
)

func newTestValidator() *Validator {
	return New(rules.Default())
}

func TestValidateRejectsBannedImports(t *testing.T) {
	v := newTestValidator()

	cases := []struct {
		name   string
		source string
		ruleID string
	}{
		{"DirectImport", "import os\nos.system('ls')\n", "os"},
		{"AliasedImport", "import os as harmless\nharmless.system('ls')\n", "os"},
		{"FromImport", "from subprocess import run\nrun(['ls'])\n", "subprocess"},
		{"DottedImport", "import os.path\n", "os"},
		{"MultiImport", "import math, socket\n", "socket"},
		{"AliasedFromImport", "from socket import socket as s\n", "socket"},
		{"NestedInFunction", "def f():\n    import shutil\n    return shutil\n", "shutil"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verdict := v.Validate(tc.source)
			require.False(t, verdict.Allowed)
			require.NotEmpty(t, verdict.Violations)
			assert.Equal(t, tc.ruleID, verdict.Violations[0].RuleID)
			assert.Positive(t, verdict.Violations[0].Line)
		})
	}
}

func TestValidateRejectsBannedBuiltins(t *testing.T) {
	v := newTestValidator()

	cases := []struct {
		name   string
		source string
		ruleID string
	}{
		{"Eval", "x = eval('2+2')\n", "eval"},
		{"Exec", "exec('print(1)')\n", "exec"},
		{"Open", "f = open('/etc/passwd')\n", "open"},
		{"DunderImport", "m = __import__('os')\n", "__import__"},
		{"Compile", "c = compile('1', '<s>', 'eval')\n", "compile"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verdict := v.Validate(tc.source)
			require.False(t, verdict.Allowed)
			assert.Equal(t, tc.ruleID, verdict.Violations[0].RuleID)
		})
	}
}

func TestValidateRejectsReflectionEscapes(t *testing.T) {
	v := newTestValidator()

	verdict := v.Validate("x = ().__class__.__bases__[0].__subclasses__()\n")
	require.False(t, verdict.Allowed)

	seen := map[string]bool{}
	for _, viol := range verdict.Violations {
		seen[viol.RuleID] = true
	}
	assert.True(t, seen["__bases__"])
	assert.True(t, seen["__subclasses__"])
}

func TestValidateAllowsSafeSource(t *testing.T) {
	v := newTestValidator()

	sources := []struct {
		name   string
		source string
	}{
		{"Print", "print('hello')\n"},
		{"Arithmetic", "print(2 + 2)\n"},
		{"Loop", "total = 0\nfor i in range(10):\n    total += i\nprint(total)\n"},
		{"StringOps", "s = 'abc'\nprint(s.upper()[::-1])\n"},
		{"SafeImport", "import math\nprint(math.sqrt(2))\n"},
		{"Input", "name = input()\nprint('hi', name)\n"},
		{"Function", "def square(x):\n    return x * x\nprint(square(7))\n"},
	}

	for _, tc := range sources {
		t.Run(tc.name, func(t *testing.T) {
			verdict := v.Validate(tc.source)
			assert.True(t, verdict.Allowed, "violations: %v", verdict.Violations)
			assert.Empty(t, verdict.Violations)
		})
	}
}

func TestValidateReportsAllViolationsInOnePass(t *testing.T) {
	v := newTestValidator()

	source := "import os\nimport socket\nx = eval('1')\n"
	verdict := v.Validate(source)
	require.False(t, verdict.Allowed)
	require.Len(t, verdict.Violations, 3)

	assert.Equal(t, "os", verdict.Violations[0].RuleID)
	assert.Equal(t, 1, verdict.Violations[0].Line)
	assert.Equal(t, "socket", verdict.Violations[1].RuleID)
	assert.Equal(t, 2, verdict.Violations[1].Line)
	assert.Equal(t, "eval", verdict.Violations[2].RuleID)
	assert.Equal(t, 3, verdict.Violations[2].Line)
}

func TestValidateSyntaxError(t *testing.T) {
	v := newTestValidator()

	verdict := v.Validate("def broken(:\n    pass\n")
	require.False(t, verdict.Allowed)
	require.Len(t, verdict.Violations, 1)
	assert.Equal(t, RuleSyntaxError, verdict.Violations[0].RuleID)
	assert.Positive(t, verdict.Violations[0].Line)
}

func TestValidateEmptySource(t *testing.T) {
	v := newTestValidator()

	verdict := v.Validate("")
	assert.True(t, verdict.Allowed)
}

func TestValidateIsDeterministic(t *testing.T) {
	v := newTestValidator()

	source := "import os\nprint('x')\n"
	first := v.Validate(source)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, v.Validate(source))
	}
}

func TestValidateCustomRuleSet(t *testing.T) {
	set := rules.Default().Extend([]string{"math"}, nil)
	v := New(set)

	verdict := v.Validate("import math\n")
	require.False(t, verdict.Allowed)
	assert.Equal(t, "math", verdict.Violations[0].RuleID)
}
