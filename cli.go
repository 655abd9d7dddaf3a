package main

import (
	"bufio"
	"fmt"
	"os"

	"streamline/internal/store"
)

// RunCLI dispatches administrative subcommands (adduser, export-user,
// import-user, rooms) before the server flag set is parsed. Returns true if
// args[0] matched a subcommand (whether or not it succeeded).
func RunCLI(args []string, dataDir string) bool {
	if len(args) == 0 {
		return false
	}
	switch args[0] {
	case "adduser":
		cliAddUser(args[1:], dataDir)
	case "export-user":
		cliExportUser(args[1:], dataDir)
	case "import-user":
		cliImportUser(args[1:], dataDir)
	case "rooms":
		cliListRooms(dataDir)
	default:
		return false
	}
	return true
}

func cliAddUser(args []string, dataDir string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: streamline adduser <username> <password>")
		os.Exit(1)
	}
	st, err := store.New(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "store: %v\n", err)
		os.Exit(1)
	}
	username, password := args[0], args[1]
	if _, exists, err := st.GetUser(username); err != nil {
		fmt.Fprintf(os.Stderr, "store: %v\n", err)
		os.Exit(1)
	} else if exists {
		fmt.Fprintf(os.Stderr, "user %q already exists\n", username)
		os.Exit(1)
	}
	u := store.User{Password: generateHash(password), Ignore: []string{}}
	if err := st.PutUser(username, u); err != nil {
		fmt.Fprintf(os.Stderr, "store: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("created user %q\n", username)
}

func cliExportUser(args []string, dataDir string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: streamline export-user <username>")
		os.Exit(1)
	}
	st, err := store.New(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "store: %v\n", err)
		os.Exit(1)
	}
	username := args[0]
	u, ok, err := st.GetUser(username)
	if err != nil {
		fmt.Fprintf(os.Stderr, "store: %v\n", err)
		os.Exit(1)
	}
	if !ok {
		fmt.Fprintf(os.Stderr, "no such user %q\n", username)
		os.Exit(1)
	}
	path, err := st.ExportUserVault(username, u)
	if err != nil {
		fmt.Fprintf(os.Stderr, "export: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("exported %q to %s\n", username, path)
}

func cliImportUser(args []string, dataDir string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: streamline import-user <vault-file>")
		os.Exit(1)
	}
	st, err := store.New(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "store: %v\n", err)
		os.Exit(1)
	}
	username, u, err := st.ImportUserVault(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "import: %v\n", err)
		os.Exit(1)
	}
	if _, exists, err := st.GetUser(username); err != nil {
		fmt.Fprintf(os.Stderr, "store: %v\n", err)
		os.Exit(1)
	} else if exists {
		fmt.Fprintf(os.Stderr, "user %q already exists\n", username)
		os.Exit(1)
	}
	if err := st.PutUser(username, u); err != nil {
		fmt.Fprintf(os.Stderr, "store: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("imported user %q\n", username)
}

func cliListRooms(dataDir string) {
	st, err := store.New(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "store: %v\n", err)
		os.Exit(1)
	}
	names, err := st.ListRoomNames()
	if err != nil {
		fmt.Fprintf(os.Stderr, "store: %v\n", err)
		os.Exit(1)
	}
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	if len(names) == 0 {
		fmt.Fprintln(w, "no rooms")
		return
	}
	for _, n := range names {
		fmt.Fprintln(w, n)
	}
}
