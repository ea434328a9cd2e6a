package domain

// Point is a single indexed chunk: its embedding vector plus the stored
// text and payload returned at search time.
type Point struct {
	ID      string
	Vector  []float32
	Text    string
	Payload Payload
}
