package tools

const (
	ToolNameReadFile   = "read_file"
	ToolNameListDir    = "list_dir"
	ToolNameWriteFile  = "write_file"
	ToolNameDeletePath = "delete_path"
)

// IsMutation reports whether the named tool changes the workspace and
// therefore must pass through the approval ledger.
func IsMutation(name string) bool {
	return name == ToolNameWriteFile || name == ToolNameDeletePath
}
