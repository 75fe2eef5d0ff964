// Command manage runs administrative tasks against the site's database and
// cache: migrations, fixture loading and cleanup.
package main

import (
	"fmt"
	"os"
)

func main() {
	registry := NewCommandRegistry()
	registerCommands(registry)

	if err := registry.Execute(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func registerCommands(r *CommandRegistry) {
	r.Register(&Command{
		Name:        "migrate",
		Description: "Create or update the database tables",
		Usage:       "manage migrate",
		Run:         migrateCommand,
	})
	r.Register(&Command{
		Name:        "creategroup",
		Description: "Create a group posts can be published into",
		Usage:       "manage creategroup -title <title> -slug <slug> [-description <text>]",
		Examples: []string{
			`manage creategroup -title "Cats" -slug cats -description "All about cats"`,
		},
		Run: createGroupCommand,
	})
	r.Register(&Command{
		Name:        "deletegroup",
		Description: "Delete a group; its posts stay without a group",
		Usage:       "manage deletegroup -slug <slug>",
		Run:         deleteGroupCommand,
	})
	r.Register(&Command{
		Name:        "deleteuser",
		Description: "Delete a user with their posts, comments and follows",
		Usage:       "manage deleteuser -username <username>",
		Run:         deleteUserCommand,
	})
	r.Register(&Command{
		Name:        "deletepost",
		Description: "Delete a post with its comments and image",
		Usage:       "manage deletepost -id <id>",
		Run:         deletePostCommand,
	})
	r.Register(&Command{
		Name:        "loaddata",
		Description: "Load groups, users and posts from a YAML fixture",
		Usage:       "manage loaddata <fixture.yaml>",
		Examples:    []string{"manage loaddata fixtures/demo.yaml"},
		Run:         loadDataCommand,
	})
	r.Register(&Command{
		Name:        "clearcache",
		Description: "Drop every cached page from Redis",
		Usage:       "manage clearcache",
		Run:         clearCacheCommand,
	})
}
