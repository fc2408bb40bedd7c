package admin

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/drbdmanage/drbdmanaged/pkg/types"
)

const resConfigTemplate = `# generated by drbdmanaged, do not edit by hand
resource {{.Name}} {
	net {
		protocol C;
		shared-secret "{{.Secret}}";
	}
{{range .Hosts}}
	on {{.NodeName}} {
		node-id {{.NodeID}};
		address {{.Addr}}:{{.Port}};
{{range .Volumes}}
		volume {{.VolID}} {
			device minor {{.MinorNr}};
			disk {{.Disk}};
			meta-disk internal;
		}
{{end}}	}
{{end}}}
`

var resConfigTmpl = template.Must(template.New("res").Parse(resConfigTemplate))

type hostView struct {
	NodeName string
	NodeID   int
	Addr     string
	Port     int
	Volumes  []volumeView
}

type volumeView struct {
	VolID   int
	MinorNr int
	Disk    string
}

type resourceView struct {
	Name   string
	Secret string
	Hosts  []hostView
}

// ConfigPath returns the deterministic .res path for resourceName (spec
// §4.6): <drbd-conf-path>/drbdmanage_<resource>.res.
func (w *Writer) ConfigPath(resourceName string) string {
	return filepath.Join(w.ConfPath, "drbdmanage_"+resourceName+".res")
}

// Writer emits and removes per-resource .res files under ConfPath.
type Writer struct {
	ConfPath string
}

// NewWriter returns a Writer rooted at confPath (the server config's
// drbd-conf-path, spec §6).
func NewWriter(confPath string) *Writer {
	return &Writer{ConfPath: confPath}
}

// WriteResourceConfig renders the named Resource and every peer
// Assignment's view into the deterministic .res path, atomically
// (write-temp-then-rename) so a concurrent drbdadm invocation never
// observes a half-written file.
func (w *Writer) WriteResourceConfig(cc *types.ClusterConfig, resName string) error {
	res, ok := cc.Resources[resName]
	if !ok {
		return fmt.Errorf("admin: resource %q not found", resName)
	}

	view := resourceView{Name: res.Name, Secret: res.Secret}
	for _, a := range cc.AssignmentsForResource(resName) {
		node, ok := cc.Nodes[a.NodeName]
		if !ok {
			continue
		}
		host := hostView{NodeName: node.Name, NodeID: a.NodeID, Addr: node.Addr, Port: res.Port}
		for _, vs := range a.VolumeStatesOrdered() {
			disk := "none"
			if vs.BlockDevice != "" {
				disk = vs.BlockDevice
			}
			vol, ok := res.Volumes[vs.VolID]
			minorNr := vs.VolID
			if ok {
				minorNr = vol.MinorNr
			}
			host.Volumes = append(host.Volumes, volumeView{VolID: vs.VolID, MinorNr: minorNr, Disk: disk})
		}
		view.Hosts = append(view.Hosts, host)
	}

	var buf bytes.Buffer
	if err := resConfigTmpl.Execute(&buf, view); err != nil {
		return fmt.Errorf("admin: render %s: %w", resName, err)
	}

	path := w.ConfigPath(resName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("admin: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("admin: rename %s: %w", tmp, err)
	}
	return nil
}

// WriteControlConfig renders the control volume's own .res file (spec §6:
// regenerated whenever cleanup deletes a Node) from the cluster's Node
// list directly, rather than from a types.Resource/Assignment pair: the
// control volume has no Resource entry of its own, every Node is
// implicitly a full peer of it.
func (w *Writer) WriteControlConfig(nodes []*types.Node, port, minorNr int, devicePath, secret string) error {
	view := resourceView{Name: DrbdctrlResName(), Secret: secret}
	for _, n := range nodes {
		view.Hosts = append(view.Hosts, hostView{
			NodeName: n.Name,
			NodeID:   n.NodeID,
			Addr:     n.Addr,
			Port:     port,
			Volumes:  []volumeView{{VolID: 0, MinorNr: minorNr, Disk: devicePath}},
		})
	}

	var buf bytes.Buffer
	if err := resConfigTmpl.Execute(&buf, view); err != nil {
		return fmt.Errorf("admin: render %s: %w", DrbdctrlResName(), err)
	}

	path := w.ConfigPath(DrbdctrlResName())
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("admin: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("admin: rename %s: %w", tmp, err)
	}
	return nil
}

// RemoveResourceConfig unlinks the .res file for resName. A missing file
// is not an error (spec §4.6).
func (w *Writer) RemoveResourceConfig(resName string) error {
	err := os.Remove(w.ConfigPath(resName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("admin: remove %s: %w", w.ConfigPath(resName), err)
	}
	return nil
}
