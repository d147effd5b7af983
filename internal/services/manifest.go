package services

import (
  "encoding/json"
  "encoding/xml"
  "errors"
  "strings"
)

var ErrNoManifest = errors.New("package has no imsmanifest.xml")

// ScormManifest is the subset of imsmanifest.xml this runtime cares about.
type ScormManifest struct {
  Title     string
  Version   string
  LaunchURL string
}

// H5PMeta is the subset of h5p.json this runtime cares about.
type H5PMeta struct {
  Title       string `json:"title"`
  MainLibrary string `json:"mainLibrary"`
}

// manifestNode is a namespace-agnostic XML tree. SCORM manifests mix
// imscp, adlcp and custom namespaces; matching on local names only keeps
// the parser working across authoring tools.
type manifestNode struct {
  XMLName  xml.Name
  Attrs    []xml.Attr     `xml:",any,attr"`
  Text     string         `xml:",chardata"`
  Children []manifestNode `xml:",any"`
}

func (n *manifestNode) attr(name string) string {
  for _, a := range n.Attrs {
    if a.Name.Local == name {
      return a.Value
    }
  }
  return ""
}

// findFirst walks the tree depth-first and returns the first element whose
// local name matches and for which keep (if non-nil) returns true.
func findFirst(n *manifestNode, local string, keep func(*manifestNode) bool) *manifestNode {
  if n.XMLName.Local == local && (keep == nil || keep(n)) {
    return n
  }
  for i := range n.Children {
    if found := findFirst(&n.Children[i], local, keep); found != nil {
      return found
    }
  }
  return nil
}

// ParseScormManifest extracts title, launch URL and SCORM version from raw
// manifest XML. The launch URL comes from the first webcontent resource's
// href; a schemaversion beginning with "2004" or "CAM" marks a SCORM 2004
// package, anything else (including absence) defaults to 1.2.
func ParseScormManifest(data []byte) (*ScormManifest, error) {
  var root manifestNode
  if err := xml.Unmarshal(data, &root); err != nil {
    return nil, err
  }

  manifest := &ScormManifest{Version: "1.2"}

  if title := findFirst(&root, "title", nil); title != nil {
    manifest.Title = strings.TrimSpace(title.Text)
  }

  if sv := findFirst(&root, "schemaversion", nil); sv != nil {
    version := strings.TrimSpace(sv.Text)
    if strings.HasPrefix(version, "2004") || strings.HasPrefix(version, "CAM") {
      manifest.Version = "2004"
    }
  }

  resource := findFirst(&root, "resource", func(n *manifestNode) bool {
    return n.attr("type") == "webcontent" && n.attr("href") != ""
  })
  if resource == nil {
    // Fall back to any resource carrying an href.
    resource = findFirst(&root, "resource", func(n *manifestNode) bool {
      return n.attr("href") != ""
    })
  }
  if resource != nil {
    manifest.LaunchURL = resource.attr("href")
  }

  return manifest, nil
}

func ParseH5PMeta(data []byte) (*H5PMeta, error) {
  var meta H5PMeta
  if err := json.Unmarshal(data, &meta); err != nil {
    return nil, err
  }
  return &meta, nil
}
