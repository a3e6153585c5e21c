/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// NewPage returns a blank plain page of the given size with a single empty layer.
func NewPage(width, height float64) *Page {
	return &Page{
		ID:         uuid.NewString(),
		Width:      width,
		Height:     height,
		Background: Background{Kind: BackgroundPlain, Color: White},
		Layers:     []Layer{{ID: uuid.NewString(), Name: "Layer 1"}},
	}
}

// NewPageLike returns a blank page with the size and background of tpl.
// Background references (images, pdf pages) are not carried over.
func NewPageLike(tpl *Page) *Page {
	p := NewPage(tpl.Width, tpl.Height)
	p.Background.Kind = tpl.Background.Kind
	p.Background.Color = tpl.Background.Color
	if p.Background.Kind == BackgroundImage || p.Background.Kind == BackgroundPDF {
		p.Background.Kind = BackgroundPlain
	}
	return p
}

// Clone returns an independent deep copy of p with fresh page, layer and element IDs.
func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}
	c := *p
	c.ID = uuid.NewString()
	if p.Layers != nil {
		c.Layers = make([]Layer, len(p.Layers))
		for i, l := range p.Layers {
			nl := l
			nl.ID = uuid.NewString()
			if l.Elements != nil {
				nl.Elements = make([]Element, len(l.Elements))
				for j, e := range l.Elements {
					ne := e
					ne.ID = uuid.NewString()
					if e.Points != nil {
						ne.Points = append([]Point(nil), e.Points...)
					}
					nl.Elements[j] = ne
				}
			}
			c.Layers[i] = nl
		}
	}
	return &c
}

// Snapshot encodes the page as JSON.
func (p *Page) Snapshot() ([]byte, error) {
	return json.Marshal(p)
}

// PageFromSnapshot decodes a page previously encoded with Snapshot.
func PageFromSnapshot(b []byte) (*Page, error) {
	var p Page
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ElementCount returns the number of elements across all layers.
func (p *Page) ElementCount() int {
	n := 0
	for _, l := range p.Layers {
		n += len(l.Elements)
	}
	return n
}
