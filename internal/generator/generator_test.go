package generator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/raaihank/passforge/internal/random"
	"github.com/raaihank/passforge/internal/rules"
)

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("rng unavailable") }

func TestGenerate(t *testing.T) {
	gen := New(WithLogger(zap.NewNop()))

	t.Run("LengthWithinBounds", func(t *testing.T) {
		r := rules.RuleSet{MinLength: 10, MaxLength: 14, IncludeLowercase: true}
		for i := 0; i < 200; i++ {
			pw, err := gen.Generate(r)
			require.NoError(t, err)
			n := utf8.RuneCountInString(pw)
			assert.GreaterOrEqual(t, n, 10)
			assert.LessOrEqual(t, n, 14)
		}
	})

	t.Run("EveryEnabledClassPresent", func(t *testing.T) {
		r := rules.RuleSet{MinLength: 4, MaxLength: 4, IncludeUppercase: true, IncludeLowercase: true, IncludeNumbers: true, IncludeSymbols: true}
		for i := 0; i < 300; i++ {
			pw, err := gen.Generate(r)
			require.NoError(t, err)
			assert.Len(t, pw, 4)
			assert.True(t, strings.ContainsAny(pw, rules.UppercaseChars), pw)
			assert.True(t, strings.ContainsAny(pw, rules.LowercaseChars), pw)
			assert.True(t, strings.ContainsAny(pw, rules.DigitChars), pw)
			assert.True(t, strings.ContainsAny(pw, rules.SymbolChars), pw)
		}
	})

	t.Run("OnlyEnabledClassesUsed", func(t *testing.T) {
		r := rules.RuleSet{MinLength: 16, MaxLength: 16, IncludeNumbers: true}
		pw, err := gen.Generate(r)
		require.NoError(t, err)
		assert.Equal(t, "", strings.Trim(pw, rules.DigitChars))
	})

	t.Run("NoClassesUsesFallback", func(t *testing.T) {
		r := rules.RuleSet{MinLength: 9, MaxLength: 9}
		for i := 0; i < 50; i++ {
			pw, err := gen.Generate(r)
			require.NoError(t, err)
			assert.Len(t, pw, 9)
			assert.Equal(t, "", strings.Trim(pw, rules.FallbackChars))
		}
	})

	t.Run("InvertedBoundsNeverFail", func(t *testing.T) {
		pw, err := gen.Generate(rules.RuleSet{MinLength: 12, MaxLength: 3, IncludeLowercase: true})
		require.NoError(t, err)
		assert.Len(t, pw, 12)
	})

	t.Run("RequiredCharactersAreShuffled", func(t *testing.T) {
		// without the shuffle the first character would always be uppercase
		r := rules.RuleSet{MinLength: 8, MaxLength: 8, IncludeUppercase: true, IncludeNumbers: true}
		firstIsUpper := 0
		for i := 0; i < 200; i++ {
			pw, err := gen.Generate(r)
			require.NoError(t, err)
			if strings.ContainsRune(rules.UppercaseChars, rune(pw[0])) {
				firstIsUpper++
			}
		}
		assert.Less(t, firstIsUpper, 200)
		assert.Greater(t, firstIsUpper, 0)
	})

	t.Run("RandomSourceFailure", func(t *testing.T) {
		broken := New(WithSource(random.New(brokenReader{})))
		_, err := broken.Generate(rules.Default())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrGenerationFailure)

		var failure *GenerationFailure
		require.True(t, errors.As(err, &failure))
		assert.Equal(t, "choose length", failure.Op)
	})
}

func TestGenerateBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("DefaultBatchSize", func(t *testing.T) {
		gen := New()
		passwords, err := gen.GenerateBatch(ctx, rules.Default(), 0)
		require.NoError(t, err)
		assert.Len(t, passwords, DefaultBatchSize)
	})

	t.Run("FullPolicyScenario", func(t *testing.T) {
		gen := New(WithConfig(Config{BatchSize: 5, Workers: 4}))
		r := rules.RuleSet{MinLength: 12, MaxLength: 16, IncludeUppercase: true, IncludeLowercase: true, IncludeNumbers: true, IncludeSymbols: true}

		passwords, err := gen.GenerateBatch(ctx, r, 5)
		require.NoError(t, err)
		require.Len(t, passwords, 5)

		for _, pw := range passwords {
			assert.GreaterOrEqual(t, len(pw), 12)
			assert.LessOrEqual(t, len(pw), 16)
			assert.True(t, rules.Conforms(r, pw), pw)
		}
	})

	t.Run("ConcurrentWorkersFillEverySlot", func(t *testing.T) {
		gen := New(WithConfig(Config{Workers: 8}))
		passwords, err := gen.GenerateBatch(ctx, rules.Default(), 100)
		require.NoError(t, err)
		require.Len(t, passwords, 100)
		for _, pw := range passwords {
			assert.NotEmpty(t, pw)
		}
	})

	t.Run("FailurePropagates", func(t *testing.T) {
		gen := New(WithSource(random.New(brokenReader{})), WithConfig(Config{Workers: 3}))
		passwords, err := gen.GenerateBatch(ctx, rules.Default(), 10)
		assert.Nil(t, passwords)
		assert.ErrorIs(t, err, ErrGenerationFailure)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		gen := New()
		_, err := gen.GenerateBatch(cctx, rules.Default(), 1000)
		// the cancelled context may race with the first jobs, but can never
		// produce a silently short batch
		if err != nil {
			assert.ErrorIs(t, err, context.Canceled)
		}
	})
}
