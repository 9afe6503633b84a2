package snapshot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandBotID_Success(t *testing.T) {
	test := func(name, input string, expected []string) {
		t.Run(name, func(t *testing.T) {
			actual, err := expandBotID(input)
			require.NoError(t, err)
			require.Equal(t, expected, actual)
		})
	}
	test("NoBraces", "build4-a9", []string{"build4-a9"})
	test("Range", "vm{1..3}-m1", []string{"vm1-m1", "vm2-m1", "vm3-m1"})
	test("List", "vm{100,150,200}-m1", []string{"vm100-m1", "vm150-m1", "vm200-m1"})
	test("RangeSingleElement", "vm{7..7}", []string{"vm7"})
	test("RangeAtStart", "{0..2}-slave", []string{"0-slave", "1-slave", "2-slave"})
	test("ListAtEnd", "slave-{a,b}", []string{"slave-a", "slave-b"})
	test("SingleElementList", "vm{9}", []string{"vm9"})
}

func TestExpandBotID_Malformed(t *testing.T) {
	test := func(name, input, reason string) {
		t.Run(name, func(t *testing.T) {
			actual, err := expandBotID(input)
			require.Nil(t, actual)
			var mbe *MalformedBraceExpressionError
			require.ErrorAs(t, err, &mbe)
			require.Equal(t, input, mbe.BotID)
			require.Equal(t, reason, mbe.Reason)
		})
	}
	test("UnbalancedOpen", "vm{1..3-m1", "unbalanced braces")
	test("UnbalancedClose", "vm1..3}-m1", "unbalanced braces")
	test("CloseBeforeOpen", "vm}1{", "unbalanced braces")
	test("TwoSections", "vm{1..3}-m{1,2}", "at most one {...} section is allowed")
	test("NestedOpen", "vm{1{2}", "at most one {...} section is allowed")
	test("Empty", "vm{}", "empty {...} section")
	test("NonNumericRangeStart", "vm{a..3}", `"a" is not a non-negative integer`)
	test("NonNumericRangeEnd", "vm{1..b}", `"b" is not a non-negative integer`)
	test("NegativeRange", "vm{-1..3}", `"-1" is not a non-negative integer`)
	test("ReversedRange", "vm{5..2}", "range start 5 is larger than range end 2")
	test("TripleDotRange", "vm{1..2..3}", `"2..3" is not a non-negative integer`)
	test("EmptyListElement", "vm{1,,3}", "empty element in {...} section")
}
