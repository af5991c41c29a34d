package steps

import (
	"fmt"
	"strings"

	"github.com/imamik/hostup/internal/host"
	"github.com/imamik/hostup/internal/provisioning"
)

// Database creates the database role and database for server engines.
type Database struct{}

// Name implements provisioning.Step.
func (*Database) Name() string { return "database" }

// Provision implements provisioning.Step.
func (d *Database) Provision(c *provisioning.Context) error {
	db := c.Recipe.Database
	if db == nil {
		c.Skipped("database", c.Target.App, "recipe has no database")
		return nil
	}
	if !c.Target.UsesDatabaseServer() {
		c.Skipped("database", db.Name, c.Target.Variant+" keeps its data in "+c.Values().DB.URL)
		return nil
	}

	var e engine = postgres{}
	if c.Target.Variant == "mysql" {
		e = mysql{}
	}
	password, _ := c.Target.Secrets.Get(provisioning.DatabasePasswordKey)

	exists, err := querySQL(c, e, e.roleExists(db.User))
	if err != nil {
		return err
	}
	switch {
	case exists && c.Target.Secrets.Provenance(provisioning.DatabasePasswordKey) == provisioning.Generated:
		return c.Failf(
			"restore the original "+provisioning.DatabasePasswordKey+" in "+c.State.EnvFile+
				", or reset it deliberately with: "+e.client(e.alterPassword(db.User, password)).String(),
			"%s role %s already exists but its password is not recorded in %s", c.Target.Variant, db.User, c.State.EnvFile)
	case exists:
		c.Target.DatabaseReuse = true
		c.Exists("database role", db.User)
	default:
		if err := execSQL(c, e, e.createRole(db.User, password)); err != nil {
			return err
		}
		c.Created("database role", db.User)
	}

	exists, err = querySQL(c, e, e.databaseExists(db.Name))
	if err != nil {
		return err
	}
	if exists {
		c.Exists("database", db.Name)
	} else {
		for _, stmt := range e.createDatabase(db.Name, db.User) {
			if err := execSQL(c, e, stmt); err != nil {
				return err
			}
		}
		c.Created("database", db.Name)
	}
	return nil
}

type engine interface {
	client(sql string) host.Command
	roleExists(user string) string
	createRole(user, password string) string
	alterPassword(user, password string) string
	databaseExists(name string) string
	createDatabase(name, owner string) []string
}

// querySQL reports whether sql returned a row.
func querySQL(c *provisioning.Context, e engine, sql string) (bool, error) {
	res, err := c.Run(e.client(sql))
	if err != nil {
		return false, c.Failf("check that the database server is running: "+e.client("SELECT 1").String(),
			"database query failed: %w", err)
	}
	return strings.TrimSpace(res.Output) == "1", nil
}

func execSQL(c *provisioning.Context, e engine, sql string) error {
	if _, err := c.Run(e.client(sql)); err != nil {
		return c.Failf("check the database server log, then re-run", "database statement failed: %w", err)
	}
	return nil
}

// quote returns s as a single-quoted SQL literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

type postgres struct{}

func (postgres) client(sql string) host.Command {
	return host.Cmd("psql", "-v", "ON_ERROR_STOP=1", "-tAc", sql).AsUser("postgres")
}

func (postgres) roleExists(user string) string {
	return "SELECT 1 FROM pg_roles WHERE rolname=" + quote(user)
}

func (postgres) createRole(user, password string) string {
	return fmt.Sprintf("CREATE ROLE %q LOGIN PASSWORD %s", user, quote(password))
}

func (postgres) alterPassword(user, password string) string {
	return fmt.Sprintf("ALTER ROLE %q PASSWORD %s", user, quote(password))
}

func (postgres) databaseExists(name string) string {
	return "SELECT 1 FROM pg_database WHERE datname=" + quote(name)
}

func (postgres) createDatabase(name, owner string) []string {
	return []string{fmt.Sprintf("CREATE DATABASE %q OWNER %q", name, owner)}
}

type mysql struct{}

func (mysql) client(sql string) host.Command {
	return host.Cmd("mysql", "-NBe", sql)
}

func (mysql) roleExists(user string) string {
	return "SELECT 1 FROM mysql.user WHERE user=" + quote(user) + " AND host='localhost'"
}

func (mysql) createRole(user, password string) string {
	return "CREATE USER " + quote(user) + "@'localhost' IDENTIFIED BY " + quote(password)
}

func (mysql) alterPassword(user, password string) string {
	return "ALTER USER " + quote(user) + "@'localhost' IDENTIFIED BY " + quote(password)
}

func (mysql) databaseExists(name string) string {
	return "SELECT 1 FROM information_schema.schemata WHERE schema_name=" + quote(name)
}

func (mysql) createDatabase(name, owner string) []string {
	return []string{
		"CREATE DATABASE `" + name + "` CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci",
		"GRANT ALL PRIVILEGES ON `" + name + "`.* TO " + quote(owner) + "@'localhost'",
		"FLUSH PRIVILEGES",
	}
}
