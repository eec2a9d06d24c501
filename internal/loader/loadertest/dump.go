// Package loadertest renders fabric dumps in the ibnetdiscover/ibroute
// text formats for tests.
package loadertest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Host is a channel adapter cabled to the switch of a star dump
type Host struct {
	GUID       uint64
	LID        int
	Name       string
	SwitchPort int
}

// Dump is the rendered input of one subnet
type Dump struct {
	Subnet     string
	SwitchGUID uint64
	Discovery  string
	// Routes maps route file names to their content
	Routes map[string]string
}

// Star renders a subnet made of one switch (lid 1) with hosts on its ports.
// The switch routes every host out of the port it is cabled to.
func Star(subnet string, switchGUID uint64, hosts ...Host) Dump {
	swDesc := fmt.Sprintf("'MF0;switch-%x:IS5030/U1'", switchGUID&0xffff)

	var disc strings.Builder
	disc.WriteString("DR path slid 0; dlid 0; 0 guid 0x" + guid(switchGUID) + "\n")
	for _, h := range hosts {
		hDesc := fmt.Sprintf("'%s HCA-1'", h.Name)
		fmt.Fprintf(&disc, "SW %5d %3d 0x%s 4x QDR - CA %5d %3d 0x%s ( %s - %s )\n",
			1, h.SwitchPort, guid(switchGUID), h.LID, 1, guid(h.GUID), swDesc, hDesc)
		fmt.Fprintf(&disc, "CA %5d %3d 0x%s 4x QDR - SW %5d %3d 0x%s ( %s - %s )\n",
			h.LID, 1, guid(h.GUID), 1, h.SwitchPort, guid(switchGUID), hDesc, swDesc)
	}
	fmt.Fprintf(&disc, "SW %5d %3d 0x%s 4x SDR\n", 1, 36, guid(switchGUID))

	var rt strings.Builder
	fmt.Fprintf(&rt, "Unicast lids [0x0-0x%x] of switch Lid 1 guid 0x%s (%s):\n",
		len(hosts)+1, guid(switchGUID), strings.Trim(swDesc, "'"))
	rt.WriteString("  Lid  Out   Destination\n       Port     Info \n")
	fmt.Fprintf(&rt, "0x%04x %03d : (Switch portguid 0x%s: %s)\n", 1, 0, guid(switchGUID), swDesc)
	for _, h := range hosts {
		fmt.Fprintf(&rt, "0x%04x %03d : (Channel Adapter portguid 0x%s: '%s HCA-1')\n",
			h.LID, h.SwitchPort, guid(h.GUID), h.Name)
	}
	fmt.Fprintf(&rt, "%d valid lids dumped \n", len(hosts)+1)

	return Dump{
		Subnet:     subnet,
		SwitchGUID: switchGUID,
		Discovery:  disc.String(),
		Routes: map[string]string{
			fmt.Sprintf("ibroute-%s-1.txt", colonID(switchGUID)): rt.String(),
		},
	}
}

// Write stores the dump under dir and returns the discovery file path.
// Routes are skipped when the dump has none.
func (d Dump) Write(t testing.TB, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "ib-subnet-"+d.Subnet+".txt")
	require.NoError(t, os.WriteFile(path, []byte(d.Discovery), 0644))

	if len(d.Routes) == 0 {
		return path
	}
	routeDir := filepath.Join(dir, "ibroutes-"+d.Subnet)
	require.NoError(t, os.MkdirAll(routeDir, 0755))
	for name, content := range d.Routes {
		require.NoError(t, os.WriteFile(filepath.Join(routeDir, name), []byte(content), 0644))
	}
	return path
}

func guid(v uint64) string {
	return fmt.Sprintf("%016x", v)
}

func colonID(v uint64) string {
	g := guid(v)
	return g[0:4] + ":" + g[4:8] + ":" + g[8:12] + ":" + g[12:16]
}
