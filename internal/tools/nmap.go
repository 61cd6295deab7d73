package tools

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
)

// XML parsing structs for nmap -oX output (unexported - internal parsing details)
type nmapRun struct {
	XMLName xml.Name   `xml:"nmaprun"`
	Hosts   []nmapHost `xml:"host"`
}

type nmapHost struct {
	Ports nmapPorts `xml:"ports"`
}

type nmapPorts struct {
	Ports []nmapPort `xml:"port"`
}

type nmapPort struct {
	Protocol string      `xml:"protocol,attr"`
	PortID   int         `xml:"portid,attr"`
	State    nmapState   `xml:"state"`
	Service  nmapService `xml:"service"`
}

type nmapState struct {
	State string `xml:"state,attr"`
}

type nmapService struct {
	Name string `xml:"name,attr"`
}

// NmapResult is a single open port reported by nmap
type NmapResult struct {
	Port     int
	Protocol string
	Service  string
}

// RunNmap scans the top ports of a single host and returns its open ports.
// XML is read from stdout; attribute order and nested elements do not matter.
func RunNmap(ctx context.Context, host string, topPorts int, binaryPath string) ([]NmapResult, error) {
	binary := "nmap"
	if binaryPath != "" {
		binary = binaryPath
	}

	if topPorts <= 0 {
		topPorts = 100
	}

	args := []string{
		"-Pn",                                // Skip ping (treat host as online)
		"--top-ports", strconv.Itoa(topPorts), // Most common ports
		"-T4",                                // Aggressive timing
		"--open",                             // Only report open ports
		"-oX", "-",                           // XML output to stdout
		host,
	}

	result, err := RunTool(ctx, binary, args...)
	if err != nil {
		return nil, fmt.Errorf("nmap execution failed: %w", err)
	}

	return ParseNmapXML(result.Stdout)
}

// ParseNmapXML extracts open ports from an nmap XML document
func ParseNmapXML(data []byte) ([]NmapResult, error) {
	var run nmapRun
	if err := xml.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("%w: failed to parse nmap XML: %v", ErrMalformedOutput, err)
	}

	results := []NmapResult{}
	for _, host := range run.Hosts {
		for _, port := range host.Ports.Ports {
			if port.State.State != "open" {
				continue
			}
			if port.PortID < 1 || port.PortID > 65535 {
				continue
			}
			results = append(results, NmapResult{
				Port:     port.PortID,
				Protocol: port.Protocol,
				Service:  port.Service.Name,
			})
		}
	}

	return results, nil
}
