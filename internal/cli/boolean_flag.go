package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	booleanFlagTypeName          = "bool"
	booleanFlagTrueLiteral       = "true"
	booleanFlagAcceptedListing   = "true, false, yes, no, on, off, 1, 0"
	booleanFlagInvalidValueLabel = "invalid boolean value"
	flagTerminator               = "--"
	longFlagPrefix               = "--"
)

var booleanFlagLiterals = map[string]bool{
	"true":  true,
	"t":     true,
	"1":     true,
	"yes":   true,
	"y":     true,
	"on":    true,
	"false": false,
	"f":     false,
	"0":     false,
	"no":    false,
	"n":     false,
	"off":   false,
}

// parseBooleanLiteral accepts the literals above case-insensitively; an empty
// input means the flag was given without a value.
func parseBooleanLiteral(input string) (bool, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return true, true
	}
	parsed, known := booleanFlagLiterals[normalized]
	return parsed, known
}

// booleanFlagValue is a pflag.Value that accepts yes/no style literals in
// addition to the forms understood by strconv.ParseBool.
type booleanFlagValue struct {
	target   *bool
	flagName string
}

func (value *booleanFlagValue) Set(input string) error {
	if value == nil || value.target == nil {
		return fmt.Errorf("%s %q", booleanFlagInvalidValueLabel, input)
	}
	parsed, known := parseBooleanLiteral(input)
	if !known {
		return fmt.Errorf("%s %q for --%s; accepted values: %s", booleanFlagInvalidValueLabel, input, value.flagName, booleanFlagAcceptedListing)
	}
	*value.target = parsed
	return nil
}

func (value *booleanFlagValue) String() string {
	if value == nil || value.target == nil {
		return strconv.FormatBool(false)
	}
	return strconv.FormatBool(*value.target)
}

func (value *booleanFlagValue) Type() string {
	return booleanFlagTypeName
}

// registerBooleanFlag binds name to target. The flag may be given bare
// (--files-only), with a value (--files-only=no), or followed by a separate
// literal once the arguments pass through normalizeBooleanFlagArguments.
func registerBooleanFlag(flagSet *pflag.FlagSet, target *bool, name string, defaultValue bool, usage string) {
	if flagSet == nil || target == nil {
		return
	}
	*target = defaultValue
	flagSet.Var(&booleanFlagValue{target: target, flagName: name}, name, usage)
	if lookup := flagSet.Lookup(name); lookup != nil {
		lookup.DefValue = strconv.FormatBool(defaultValue)
		lookup.NoOptDefVal = booleanFlagTrueLiteral
	}
}

// normalizeBooleanFlagArguments rewrites "--flag literal" into "--flag=literal"
// for boolean flags so that pflag does not treat the literal as a positional
// argument. Only the flags of the command the arguments resolve to are
// considered, together with the persistent flags it inherits.
func normalizeBooleanFlagArguments(command *cobra.Command, arguments []string) []string {
	if command == nil || len(arguments) == 0 {
		return arguments
	}
	target := command
	if found, _, findError := command.Find(arguments); findError == nil && found != nil {
		target = found
	}
	booleanFlags := booleanFlagNames(target)
	if len(booleanFlags) == 0 {
		return arguments
	}

	normalized := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		currentArgument := arguments[index]
		if currentArgument == flagTerminator {
			normalized = append(normalized, arguments[index:]...)
			break
		}
		if !strings.HasPrefix(currentArgument, longFlagPrefix) || strings.Contains(currentArgument, "=") || index+1 >= len(arguments) {
			normalized = append(normalized, currentArgument)
			continue
		}
		flagName := strings.TrimPrefix(currentArgument, longFlagPrefix)
		nextArgument := arguments[index+1]
		if _, isBoolean := booleanFlags[flagName]; isBoolean && !strings.HasPrefix(nextArgument, "-") {
			if _, known := parseBooleanLiteral(nextArgument); known && strings.TrimSpace(nextArgument) != "" {
				normalized = append(normalized, fmt.Sprintf("%s%s=%s", longFlagPrefix, flagName, nextArgument))
				index++
				continue
			}
		}
		normalized = append(normalized, currentArgument)
	}
	return normalized
}

func booleanFlagNames(command *cobra.Command) map[string]struct{} {
	names := map[string]struct{}{}
	collect := func(flag *pflag.Flag) {
		if flag != nil && flag.Value != nil && flag.Value.Type() == booleanFlagTypeName {
			names[flag.Name] = struct{}{}
		}
	}
	command.LocalFlags().VisitAll(collect)
	command.InheritedFlags().VisitAll(collect)
	return names
}
