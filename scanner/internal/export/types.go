package export

import "encoding/xml"

// Document is the exported server list.
type Document struct {
	XMLName     xml.Name `xml:"servers" json:"-"`
	GeneratedAt string   `xml:"generated,attr" json:"generated_at"` // RFC3339
	Servers     []Server `xml:"server" json:"servers"`
}

// Server is one exported server.
type Server struct {
	JID                 string          `xml:"jid,attr" json:"jid"`
	Available           bool            `xml:"available,attr" json:"available"`
	OfflineSince        string          `xml:"offline_since,attr,omitempty" json:"offline_since,omitempty"` // RFC3339
	TimesOnline         int             `xml:"times_online,attr" json:"times_online"`
	TimesQueried        int             `xml:"times_queried,attr" json:"times_queried"`
	IPv6Ready           *bool           `xml:"ipv6_ready,attr,omitempty" json:"ipv6_ready,omitempty"`
	Implementation      *Implementation `xml:"implementation,omitempty" json:"implementation,omitempty"`
	About               []Field         `xml:"about>field,omitempty" json:"about,omitempty"`
	AvailableServices   []Service       `xml:"available_services>service,omitempty" json:"available_services"`
	UnavailableServices []Service       `xml:"unavailable_services>service,omitempty" json:"unavailable_services"`
}

// Implementation is the reported server software.
type Implementation struct {
	Name    string `xml:"name,attr" json:"name"`
	Version string `xml:"version,attr,omitempty" json:"version,omitempty"`
}

// Field is one metadata field from the server list feeds.
type Field struct {
	Name  string `xml:"name,attr" json:"name"`
	Value string `xml:",chardata" json:"value"`
}

// Service groups the components offering one service kind.
type Service struct {
	Category   string      `xml:"category,attr" json:"category"`
	Type       string      `xml:"type,attr" json:"type"`
	Components []Component `xml:"component" json:"components"`
}

// Component is one discovered component.
type Component struct {
	JID  string `xml:"jid,attr" json:"jid"`
	Node string `xml:"node,attr,omitempty" json:"node,omitempty"`
}
