package domain

// PortEndpoint identifies one side of a discovered port pairing
type PortEndpoint struct {
	Kind        NodeKind
	LID         int
	Port        int
	GUID        string
	Description string
}

// PortRecord is one active-port line of a discovery dump
type PortRecord struct {
	Source      PortEndpoint
	Dest        PortEndpoint
	Width       string
	Speed       string
	Description string
}
