package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/meysamhadeli/selfie/literals"
	"github.com/meysamhadeli/selfie/utils"
	"github.com/spf13/cobra"
)

var literalCmd = &cobra.Command{
	Use:   "literal [value]",
	Short: "Print the source literal a value would be written as.",
	Long: `The 'literal' command encodes a value the way inline snapshots write it into a test source,
e.g. a multi-line string becomes a Java text block or a Kotlin raw string. The value is taken from
the arguments, or from stdin when there are none.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		format, _ := cmd.Flags().GetString("format")
		plain, _ := cmd.Flags().GetBool("plain")

		javaVersion, _ := cmd.Flags().GetInt("java_version")
		theme, _ := cmd.Flags().GetString("theme")

		var value string
		if len(args) > 0 {
			value = strings.Join(args, " ")
		} else {
			input, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("error reading stdin: %w", err)
			}
			value = strings.TrimSuffix(string(input), "\n")
		}

		language, err := literals.LanguageFromFilename(file, javaVersion)
		if err != nil {
			return err
		}
		source, err := encodeLiteral(value, format, language)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if plain {
			_, err = fmt.Fprintln(out, source)
			return err
		}
		return utils.HighlightLiteral(out, source+"\n", language.Lexer(), theme)
	},
}

func init() {
	literalCmd.Flags().String("file", "Test.java", "A file name whose extension picks the language (.java, .kt, .groovy, .scala)")
	literalCmd.Flags().String("format", "string", "The literal format: 'string', 'int', 'long' or 'boolean'")
	literalCmd.Flags().Bool("plain", false, "Print without syntax highlighting")

	rootCmd.AddCommand(literalCmd)
}

func encodeLiteral(value string, format string, language literals.Language) (string, error) {
	switch format {
	case "string":
		return literals.String.Encode(value, language)
	case "int":
		n, err := strconv.ParseInt(strings.ReplaceAll(value, "_", ""), 10, 32)
		if err != nil {
			return "", fmt.Errorf("not an int: %w", err)
		}
		return literals.Int.Encode(int(n), language)
	case "long":
		n, err := strconv.ParseInt(strings.ReplaceAll(value, "_", ""), 10, 64)
		if err != nil {
			return "", fmt.Errorf("not a long: %w", err)
		}
		return literals.Long.Encode(n, language)
	case "boolean":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", fmt.Errorf("not a boolean: %w", err)
		}
		return literals.Boolean.Encode(b, language)
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
}
