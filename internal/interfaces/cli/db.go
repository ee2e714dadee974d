package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/database/postgres"
	"github.com/turtacn/KeyIP-Chem/pkg/errors"
)

// SchemaMigrator manages the compound store schema.  *postgres.Migrator
// implements it.
type SchemaMigrator interface {
	Up() (postgres.SchemaState, error)
	Rollback(steps int) (postgres.SchemaState, error)
	Status() (postgres.SchemaState, error)
}

// NewDBCmd creates the db command group.
func NewDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the compound store schema",
		Long: "Apply, inspect or roll back the PostgreSQL schema behind compound registration.\n" +
			"The database and migration source come from the database section of the config.",
	}
	cmd.AddCommand(newDBMigrateCmd(), newDBStatusCmd(), newDBRollbackCmd())
	return cmd
}

func newDBMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd, SchemaMigrator.Up)
		},
	}
}

func newDBStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd, SchemaMigrator.Status)
		},
	}
}

func newDBRollbackCmd() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Revert the most recent migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				return errors.InvalidParam("steps must be greater than 0")
			}
			return runSchema(cmd, func(m SchemaMigrator) (postgres.SchemaState, error) {
				return m.Rollback(steps)
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to revert")
	return cmd
}

func runSchema(cmd *cobra.Command, op func(SchemaMigrator) (postgres.SchemaState, error)) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	m, err := cliCtx.Schema()
	if err != nil {
		return err
	}
	state, err := op(m)
	if err != nil {
		return err
	}
	return PrintResult(cmd, schemaView(state))
}

type schemaView postgres.SchemaState

func (v schemaView) RenderText(w io.Writer) {
	if v.Dirty {
		fmt.Fprintf(w, "schema version %d (dirty)\n", v.Version)
		return
	}
	fmt.Fprintf(w, "schema version %d\n", v.Version)
}

func (v schemaView) TableHeaders() []string { return []string{"VERSION", "DIRTY"} }
func (v schemaView) TableRows() [][]string {
	return [][]string{{strconv.FormatUint(uint64(v.Version), 10), strconv.FormatBool(v.Dirty)}}
}

//Personal.AI order the ending
