/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the persisted data model of a page deck.
// The manifest (deck.json) is the source of truth; Document is the in-memory
// lockable page list built from it.

// Deck represents a page deck and its metadata.
// It is intended to serialize to a human-readable JSON manifest.
type Deck struct {
	Name     string   `json:"name"`
	Metadata Metadata `json:"metadata,omitempty"`
	// PageWidth/PageHeight are the default size for new pages, in points.
	PageWidth  float64 `json:"pageWidth"`
	PageHeight float64 `json:"pageHeight"`
	Pages      []Page  `json:"pages"`
}

// Metadata contains optional descriptive metadata for a deck.
type Metadata struct {
	Title   string `json:"title,omitempty"`
	Authors string `json:"authors,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// Page represents a single page of a deck. ID is stable across reorders;
// the position in Deck.Pages is not an identity.
type Page struct {
	ID         string     `json:"id"`
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
	Background Background `json:"background"`
	Layers     []Layer    `json:"layers,omitempty"`
}

// Background describes what is drawn under the layers.
type Background struct {
	Kind  string `json:"kind"` // plain, lined, graph, image, pdf
	Color Color  `json:"color"`
	// Ref points at an asset (image file, pdf page) for image/pdf kinds.
	Ref string `json:"ref,omitempty"`
}

// Layer groups annotation elements on a page.
type Layer struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Hidden   bool      `json:"hidden,omitempty"`
	Elements []Element `json:"elements,omitempty"`
}

// Element is one annotation on a layer (stroke, text, image, formula).
type Element struct {
	ID     string  `json:"id"`
	Type   string  `json:"type"`
	Bounds Rect    `json:"bounds"`
	Text   string  `json:"text,omitempty"`
	Points []Point `json:"points,omitempty"`
	Stroke Stroke  `json:"stroke,omitempty"`
}

// Geometry primitives.

type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

type Stroke struct {
	Color Color   `json:"color"`
	Width float64 `json:"width"`
}

// Background kinds.
const (
	BackgroundPlain = "plain"
	BackgroundLined = "lined"
	BackgroundGraph = "graph"
	BackgroundImage = "image"
	BackgroundPDF   = "pdf"
)

// White is the default page colour.
var White = Color{R: 255, G: 255, B: 255, A: 255}
