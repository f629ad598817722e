package model

// Classification is the coarse label attached to an interaction.
type Classification string

const (
	// ClassificationHuman is assigned when neither a tool signature nor
	// machine-speed timing was observed.
	ClassificationHuman Classification = "human"

	// ClassificationBot is assigned to automated, non-fingerprinted traffic.
	ClassificationBot Classification = "bot"

	// ClassificationScanner is assigned whenever a known tool or attack
	// signature was detected.
	ClassificationScanner Classification = "scanner"

	// ClassificationUnknown is used by the SSH and FTP sessions when the
	// interaction alone is not conclusive.
	ClassificationUnknown Classification = "unknown"
)

// Classifications returns every label in descending order of severity.
func Classifications() []Classification {
	return []Classification{
		ClassificationScanner,
		ClassificationBot,
		ClassificationHuman,
		ClassificationUnknown,
	}
}

// String returns the stored label.
func (c Classification) String() string {
	return string(c)
}

// Tool is a label naming a known scanning tool or attack family.
// The zero value means no tool was detected.
type Tool string

// Known tool labels.
const (
	ToolNone             Tool = ""
	ToolSQLMap           Tool = "sqlmap"
	ToolNikto            Tool = "nikto"
	ToolNmap             Tool = "nmap"
	ToolW3af             Tool = "w3af"
	ToolAcunetix         Tool = "acunetix"
	ToolNessus           Tool = "nessus"
	ToolWordPressScanner Tool = "wordpress_scanner"
	ToolPHPMyAdmin       Tool = "phpmyadmin_scanner"
	ToolFileInclusion    Tool = "file_inclusion"
	ToolSQLInjection     Tool = "sql_injection"
)

// String returns the stored label.
func (t Tool) String() string {
	return string(t)
}

// Detected reports whether a tool label is present.
func (t Tool) Detected() bool {
	return t != ToolNone
}
