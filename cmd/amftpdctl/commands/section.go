package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/marmos91/amftpd/internal/cli/output"
	"github.com/marmos91/amftpd/pkg/accounts"
	"github.com/spf13/cobra"
)

// sectionCmd has no counterpart in the teacher; the NFS/SMB source has
// no notion of a ratio/nuke-bearing virtual-root section, so this
// command is grounded on accounts.Section and modeled on groupCmd's
// add/delete/list shape.
var sectionCmd = &cobra.Command{
	Use:   "section",
	Short: "Manage release sections",
}

var sectionOutput string

func init() {
	sectionCmd.PersistentFlags().StringVarP(&sectionOutput, "output", "o", "table", "Output format (table|json|yaml)")

	sectionCmd.AddCommand(sectionAddCmd)
	sectionCmd.AddCommand(sectionDeleteCmd)
	sectionCmd.AddCommand(sectionListCmd)
}

var (
	sectionFreeLeech bool
	sectionRatioUp   int32
	sectionRatioDown int32
	sectionNukeMult  string
)

var sectionAddCmd = &cobra.Command{
	Use:   "add <name> <virtual_root>",
	Short: "Create a new section",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		name, root := args[0], args[1]
		if _, ok := db.Sections().Find(name); ok {
			return fmt.Errorf("section %q already exists", name)
		}

		section := accounts.Section{
			Name:              name,
			VirtualRoot:       accounts.NormalizeVirtualRoot(root),
			FreeLeech:         sectionFreeLeech,
			RatioUploadUnit:   sectionRatioUp,
			RatioDownloadUnit: sectionRatioDown,
		}
		if sectionNukeMult != "" {
			mult, err := strconv.ParseFloat(sectionNukeMult, 64)
			if err != nil {
				return fmt.Errorf("invalid --nuke-multiplier %q: %w", sectionNukeMult, err)
			}
			section.NukeMultiplier = &mult
		}

		if err := db.Sections().TryAdd(section); err != nil {
			return fmt.Errorf("add section: %w", err)
		}
		fmt.Printf("section %q created at %q\n", name, section.VirtualRoot)
		return nil
	},
}

func init() {
	sectionAddCmd.Flags().BoolVar(&sectionFreeLeech, "free-leech", false, "Exempt downloads in this section from ratio")
	sectionAddCmd.Flags().Int32Var(&sectionRatioUp, "ratio-up", 1, "Upload ratio unit")
	sectionAddCmd.Flags().Int32Var(&sectionRatioDown, "ratio-down", 1, "Download ratio unit")
	sectionAddCmd.Flags().StringVar(&sectionNukeMult, "nuke-multiplier", "", "Default nuke credit multiplier (unset = not configured)")
}

var sectionDeleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Aliases: []string{"remove"},
	Short:   "Delete a section",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		if err := db.Sections().TryDelete(args[0]); err != nil {
			return fmt.Errorf("delete section: %w", err)
		}
		fmt.Printf("section %q deleted\n", args[0])
		return nil
	},
}

var sectionListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all sections",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		format, err := output.ParseFormat(sectionOutput)
		if err != nil {
			return err
		}

		sections := db.Sections().All()

		switch format {
		case output.FormatJSON:
			return output.PrintJSON(os.Stdout, sections)
		case output.FormatYAML:
			return output.PrintYAML(os.Stdout, sections)
		default:
			printSectionTable(sections)
		}
		return nil
	},
}

func printSectionTable(sections []accounts.Section) {
	if len(sections) == 0 {
		fmt.Println("no sections configured")
		return
	}
	fmt.Printf("%-16s %-24s %-10s %-8s %s\n", "NAME", "VIRTUAL ROOT", "FREELEECH", "RATIO", "NUKE MULT")
	fmt.Println(strings.Repeat("-", 76))
	for _, s := range sections {
		ratio := fmt.Sprintf("%d:%d", s.RatioUploadUnit, s.RatioDownloadUnit)
		nukeMult := "-"
		if s.NukeMultiplier != nil {
			nukeMult = strconv.FormatFloat(*s.NukeMultiplier, 'f', -1, 64)
		}
		fmt.Printf("%-16s %-24s %-10t %-8s %s\n", s.Name, s.VirtualRoot, s.FreeLeech, ratio, nukeMult)
	}
}
