package services

import "testing"

const scorm12Manifest = `<?xml version="1.0"?>
<manifest xmlns="http://www.imsproject.org/xsd/imscp_rootv1p1p2" identifier="golf">
  <metadata>
    <schema>ADL SCORM</schema>
    <schemaversion>1.2</schemaversion>
  </metadata>
  <organizations default="golf_org">
    <organization identifier="golf_org">
      <title>Golf Explained</title>
    </organization>
  </organizations>
  <resources>
    <resource identifier="res1" type="webcontent" adlcp:scormtype="sco" href="shared/launchpage.html" xmlns:adlcp="http://www.adlnet.org/xsd/adlcp_rootv1p2">
      <file href="shared/launchpage.html"/>
    </resource>
  </resources>
</manifest>`

const scorm2004Manifest = `<?xml version="1.0"?>
<manifest xmlns="http://www.imsglobal.org/xsd/imscp_v1p1" identifier="course">
  <metadata>
    <schemaversion>2004 4th Edition</schemaversion>
  </metadata>
  <organizations>
    <organization identifier="org">
      <title>Advanced Course</title>
    </organization>
  </organizations>
  <resources>
    <resource identifier="meta" type="metadata" href="ignored.xml"/>
    <resource identifier="res1" type="webcontent" href="index_lms.html"/>
  </resources>
</manifest>`

func TestParseScormManifest(t *testing.T) {
	tests := []struct {
		name       string
		xml        string
		wantTitle  string
		wantVer    string
		wantLaunch string
	}{
		{"scorm 1.2", scorm12Manifest, "Golf Explained", "1.2", "shared/launchpage.html"},
		{"scorm 2004", scorm2004Manifest, "Advanced Course", "2004", "index_lms.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseScormManifest([]byte(tt.xml))
			if err != nil {
				t.Fatalf("ParseScormManifest: %v", err)
			}
			if m.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", m.Title, tt.wantTitle)
			}
			if m.Version != tt.wantVer {
				t.Errorf("Version = %q, want %q", m.Version, tt.wantVer)
			}
			if m.LaunchURL != tt.wantLaunch {
				t.Errorf("LaunchURL = %q, want %q", m.LaunchURL, tt.wantLaunch)
			}
		})
	}
}

func TestParseScormManifestDefaults(t *testing.T) {
	// No schemaversion and no webcontent resource: version defaults to 1.2
	// and the first href-bearing resource is used.
	m, err := ParseScormManifest([]byte(`<manifest><resources><resource identifier="r" type="sco" href="start.html"/></resources></manifest>`))
	if err != nil {
		t.Fatalf("ParseScormManifest: %v", err)
	}
	if m.Version != "1.2" {
		t.Errorf("Version = %q, want 1.2", m.Version)
	}
	if m.LaunchURL != "start.html" {
		t.Errorf("LaunchURL = %q, want start.html", m.LaunchURL)
	}
}

func TestParseScormManifestMalformed(t *testing.T) {
	if _, err := ParseScormManifest([]byte("not xml at all <<<")); err == nil {
		t.Fatal("ParseScormManifest(malformed) = nil, want error")
	}
}

func TestParseH5PMeta(t *testing.T) {
	meta, err := ParseH5PMeta([]byte(`{"title":"Interactive Video","mainLibrary":"H5P.InteractiveVideo","language":"en"}`))
	if err != nil {
		t.Fatalf("ParseH5PMeta: %v", err)
	}
	if meta.Title != "Interactive Video" {
		t.Errorf("Title = %q", meta.Title)
	}
	if meta.MainLibrary != "H5P.InteractiveVideo" {
		t.Errorf("MainLibrary = %q", meta.MainLibrary)
	}
	if _, err := ParseH5PMeta([]byte("{broken")); err == nil {
		t.Fatal("ParseH5PMeta(malformed) = nil, want error")
	}
}
