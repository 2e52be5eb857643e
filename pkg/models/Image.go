package models

/*
Image is a single row of the images table. Rows are owned by the
hosted data store and are never written by this program.
*/
type Image struct {
	ID       int    `json:"id"`
	Slider   bool   `json:"slider"`
	ImageSrc string `json:"imageSrc"`
	Title    string `json:"title"`
	Keywords string `json:"keywords"`
}
