package codec

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// AnsibleCodec exports hosts as an Ansible inventory with one group per
// partition
type AnsibleCodec struct{}

// NewAnsibleCodec creates a new Ansible codec
func NewAnsibleCodec() *AnsibleCodec {
	return &AnsibleCodec{}
}

// Format returns the codec format identifier
func (c *AnsibleCodec) Format() string {
	return "ansible-inventory"
}

// Extension returns the output file extension
func (c *AnsibleCodec) Extension() string {
	return "inventory.yaml"
}

// ansibleInventory represents the Ansible inventory structure
type ansibleInventory struct {
	All ansibleGroup `yaml:"all"`
}

type ansibleGroup struct {
	Children map[string]ansibleGroupDef `yaml:"children,omitempty"`
	Hosts    map[string]ansibleHost     `yaml:"hosts,omitempty"`
	Vars     map[string]interface{}     `yaml:"vars,omitempty"`
}

type ansibleGroupDef struct {
	Hosts map[string]ansibleHost `yaml:"hosts,omitempty"`
	Vars  map[string]interface{} `yaml:"vars,omitempty"`
}

type ansibleHost struct {
	Vars map[string]interface{} `yaml:",inline"`
}

// GroupName turns a partition name into a valid Ansible group name. Dashes
// become underscores; the unnamed partition becomes "partition_<index>".
func GroupName(p DocPartition) string {
	if p.Name == "" {
		return fmt.Sprintf("partition_%d", p.Index)
	}
	return strings.ToLower(strings.ReplaceAll(p.Name, "-", "_"))
}

// switchGroup lists every switch of the subnet
const switchGroup = "ib_switches"

// Export writes every host under the group of its partition. Switches are
// listed under the ib_switches group keyed by physical id.
//
// Group and host names are unique within the inventory. A group whose name
// is already taken gets its partition index appended; a host whose hostname
// is taken (two adapters in one machine) gets its GUID appended.
func (c *AnsibleCodec) Export(doc *Document, w io.Writer) error {
	inv := ansibleInventory{
		All: ansibleGroup{
			Children: make(map[string]ansibleGroupDef),
			Vars: map[string]interface{}{
				"ib_subnet": doc.Subnet,
			},
		},
	}

	groups := map[string]bool{switchGroup: true}
	hosts := make(map[string]bool)
	for _, n := range doc.Nodes {
		if n.Kind == "switch" {
			hosts[n.ID] = true
		}
	}

	for _, p := range doc.Partitions {
		group := ansibleGroupDef{
			Hosts: make(map[string]ansibleHost, len(p.Members)),
			Vars:  map[string]interface{}{"ib_partition": p.Name},
		}
		for _, id := range p.Members {
			n := doc.Node(id)
			if n == nil {
				continue
			}
			group.Hosts[hostKey(n, hosts)] = ansibleHost{Vars: map[string]interface{}{
				"ib_guid":     n.ID,
				"ib_lid":      n.LID,
				"ib_hostname": n.Hostname,
			}}
		}

		name := GroupName(p)
		for groups[name] {
			name = fmt.Sprintf("%s_%d", name, p.Index)
		}
		groups[name] = true
		inv.All.Children[name] = group
	}

	switches := make(map[string]ansibleHost)
	for _, n := range doc.Nodes {
		if n.Kind != "switch" {
			continue
		}
		vars := map[string]interface{}{"ib_lid": n.LID}
		if n.Description != "" {
			vars["ib_description"] = n.Description
		}
		switches[n.ID] = ansibleHost{Vars: vars}
	}
	if len(switches) > 0 {
		inv.All.Children[switchGroup] = ansibleGroupDef{Hosts: switches}
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&inv); err != nil {
		return fmt.Errorf("failed to encode Ansible inventory: %w", err)
	}

	return nil
}

// hostKey picks an unused inventory name for a host and marks it taken
func hostKey(n *DocNode, taken map[string]bool) string {
	key := n.Hostname
	if key == "" {
		key = n.ID
	}
	if taken[key] {
		key = key + "-" + strings.ReplaceAll(n.ID, ":", "")
	}
	taken[key] = true
	return key
}
