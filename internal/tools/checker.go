package tools

import (
	"bytes"
	"os/exec"
	"strings"
)

// ToolRequirement represents an external tool dependency
type ToolRequirement struct {
	Name       string // Display name
	Binary     string // Executable name or path
	Required   bool   // Whether the tool is required for the requested run
	InstallCmd string // Installation command
	Purpose    string // One-line description
}

// CheckResult represents the result of checking a single tool
type CheckResult struct {
	Tool    ToolRequirement
	Found   bool
	Path    string
	Version string
}

// Binaries overrides the executable used for each tool; empty means the
// tool name resolved from PATH.
type Binaries struct {
	Subfinder string
	Httpx     string
	Nmap      string
}

func (b Binaries) pick(name, override string) string {
	if override != "" {
		return override
	}
	return name
}

// DefaultTools returns the list of external tools used by reconx
func DefaultTools(bin Binaries) []ToolRequirement {
	return []ToolRequirement{
		{
			Name:       "subfinder",
			Binary:     bin.pick("subfinder", bin.Subfinder),
			Required:   true,
			InstallCmd: "go install -v github.com/projectdiscovery/subfinder/v2/cmd/subfinder@latest",
			Purpose:    "Subdomain enumeration",
		},
		{
			Name:       "httpx",
			Binary:     bin.pick("httpx", bin.Httpx),
			Required:   true,
			InstallCmd: "go install -v github.com/projectdiscovery/httpx/cmd/httpx@latest",
			Purpose:    "HTTP probing",
		},
		{
			Name:       "nmap",
			Binary:     bin.pick("nmap", bin.Nmap),
			Required:   true,
			InstallCmd: "apt install nmap (or brew install nmap on macOS)",
			Purpose:    "Port scanning",
		},
	}
}

// RequiredTools returns the tools needed for a run. nmap is only required
// when port scanning is enabled.
func RequiredTools(bin Binaries, portScan bool) []ToolRequirement {
	var out []ToolRequirement
	for _, t := range DefaultTools(bin) {
		if t.Name == "nmap" && !portScan {
			continue
		}
		out = append(out, t)
	}
	return out
}

// MissingTools returns the required tools that could not be found
func MissingTools(tools []ToolRequirement) []ToolRequirement {
	var missing []ToolRequirement
	for _, t := range tools {
		if !t.Required {
			continue
		}
		if _, err := exec.LookPath(t.Binary); err != nil {
			missing = append(missing, t)
		}
	}
	return missing
}

// CheckTools checks all tools in the provided list
func CheckTools(tools []ToolRequirement) []CheckResult {
	results := make([]CheckResult, len(tools))
	for i, tool := range tools {
		results[i] = CheckTool(tool)
	}
	return results
}

// CheckTool checks if a single tool is available
func CheckTool(tool ToolRequirement) CheckResult {
	result := CheckResult{
		Tool:  tool,
		Found: false,
	}

	path, err := exec.LookPath(tool.Binary)
	if err != nil {
		return result
	}

	result.Found = true
	result.Path = path

	// Try to get version (best effort)
	result.Version = getVersion(path)

	return result
}

// getVersion attempts to get the version of a tool
func getVersion(binary string) string {
	versionFlags := []string{"--version", "-version", "-v", "version"}

	for _, flag := range versionFlags {
		cmd := exec.Command(binary, flag)
		var out bytes.Buffer
		cmd.Stdout = &out
		cmd.Stderr = &out

		err := cmd.Run()
		if err == nil && out.Len() > 0 {
			firstLine := strings.Split(out.String(), "\n")[0]
			version := strings.TrimSpace(firstLine)
			if len(version) > 50 {
				version = version[:50] + "..."
			}
			return version
		}
	}

	return "unknown"
}
