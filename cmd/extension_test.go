package cmd

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestRunExtension(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("extensions are shell scripts in this test")
	}
	dir := t.TempDir()
	out := filepath.Join(dir, "env.txt")
	script := "#!/bin/sh\n" +
		"echo \"" + EnvDatabasePath + "=$" + EnvDatabasePath + "\" > " + out + "\n" +
		"echo \"" + EnvUserID + "=$" + EnvUserID + "\" >> " + out + "\n" +
		"echo \"" + EnvAccountID + "=$" + EnvAccountID + "\" >> " + out + "\n" +
		"echo \"args=$*\" >> " + out + "\n" +
		"exit 3\n"
	if err := os.WriteFile(filepath.Join(dir, "tj-hello"), []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	t.Setenv(EnvUserID, "")

	db := filepath.Join(dir, "journal.db")
	*databasePath, *accountID = db, 7
	t.Cleanup(func() { *databasePath, *accountID = "", -1 })

	found, code := RunExtension("hello", []string{"a", "b"})
	if !found || code != 3 {
		t.Fatalf("RunExtension() = %v, %d, want true, 3", found, code)
	}

	content, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{EnvDatabasePath + "=" + db, EnvUserID + "=1", EnvAccountID + "=7", "args=a b"} {
		if !strings.Contains(string(content), want) {
			t.Errorf("extension environment does not contain %q:\n%s", want, content)
		}
	}

	if found, _ := RunExtension("does-not-exist", nil); found {
		t.Error("RunExtension(does-not-exist) found an extension")
	}
}
