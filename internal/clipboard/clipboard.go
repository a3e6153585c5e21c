/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package clipboard moves pages through the clipboard. A clipboard offers a
// payload in one of several representations, tried in a fixed order.
package clipboard

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	sysclip "github.com/atotto/clipboard"

	"pagedeck/internal/domain"
)

// ErrNoRepresentation is returned when no supported representation is on offer.
var ErrNoRepresentation = errors.New("clipboard: no matching representation")

// ErrUnsupported is returned by System when the OS clipboard cannot be used.
var ErrUnsupported = errors.New("clipboard: system clipboard unavailable (install xclip, xsel or wl-clipboard)")

// Payload is one of Text, Image or Document.
type Payload interface {
	isPayload()
}

// Text is plain text.
type Text string

// Image refers to picture data already stored as a deck asset.
type Image struct {
	Ref           string
	Width, Height int
}

// Document is a serialized page.
type Document []byte

func (Text) isPayload()     {}
func (Image) isPayload()    {}
func (Document) isPayload() {}

// Source offers clipboard contents. Each method returns ErrNoRepresentation
// when that representation is not available.
type Source interface {
	Text() (string, error)
	Image() (Image, error)
	Document() ([]byte, error)
}

// Sink accepts a payload.
type Sink interface {
	Write(p Payload) error
}

// Read returns the first representation src offers, trying text, then
// image, then document.
func Read(src Source) (Payload, error) {
	if s, err := src.Text(); err == nil {
		return Text(s), nil
	} else if !errors.Is(err, ErrNoRepresentation) {
		return nil, err
	}
	if img, err := src.Image(); err == nil {
		return img, nil
	} else if !errors.Is(err, ErrNoRepresentation) {
		return nil, err
	}
	if b, err := src.Document(); err == nil {
		return Document(b), nil
	} else if !errors.Is(err, ErrNoRepresentation) {
		return nil, err
	}
	return nil, ErrNoRepresentation
}

// FromPage serializes p as a Document payload.
func FromPage(p *domain.Page) (Document, error) {
	b, err := p.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("encode page: %w", err)
	}
	return Document(b), nil
}

// ToPage turns a payload into a new page of the given size. Pasted pages
// always get fresh IDs.
func ToPage(p Payload, width, height float64) (*domain.Page, error) {
	switch v := p.(type) {
	case Document:
		src, err := domain.PageFromSnapshot(v)
		if err != nil {
			return nil, fmt.Errorf("decode page: %w", err)
		}
		return src.Clone(), nil
	case Text:
		page := domain.NewPage(width, height)
		const margin = 36
		page.Layers[0].Elements = append(page.Layers[0].Elements, domain.Element{
			ID:     page.ID + "-text",
			Type:   "text",
			Bounds: domain.Rect{X: margin, Y: margin, Width: width - 2*margin, Height: height - 2*margin},
			Text:   string(v),
		})
		return page, nil
	case Image:
		page := domain.NewPage(width, height)
		page.Background.Kind = domain.BackgroundImage
		page.Background.Ref = v.Ref
		return page, nil
	default:
		return nil, ErrNoRepresentation
	}
}

// documentMarker prefixes serialized pages placed on the system clipboard so
// they are not mistaken for plain text.
const documentMarker = "application/x-pagedeck-page\n"

// System is the OS clipboard. It carries text only; pages travel as marked text.
type System struct{}

func (System) Text() (string, error) {
	if Unsupported() {
		return "", ErrUnsupported
	}
	s, err := sysclip.ReadAll()
	if err != nil {
		return "", err
	}
	if s == "" || strings.HasPrefix(s, documentMarker) {
		return "", ErrNoRepresentation
	}
	return s, nil
}

func (System) Image() (Image, error) { return Image{}, ErrNoRepresentation }

func (System) Document() ([]byte, error) {
	if Unsupported() {
		return nil, ErrUnsupported
	}
	s, err := sysclip.ReadAll()
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(s, documentMarker) {
		return nil, ErrNoRepresentation
	}
	return []byte(strings.TrimPrefix(s, documentMarker)), nil
}

func (System) Write(p Payload) error {
	if Unsupported() {
		return ErrUnsupported
	}
	switch v := p.(type) {
	case Text:
		return sysclip.WriteAll(string(v))
	case Document:
		return sysclip.WriteAll(documentMarker + string(v))
	default:
		return ErrNoRepresentation
	}
}

// Unsupported reports whether the system clipboard is unavailable, e.g. no
// xclip/xsel on Linux.
func Unsupported() bool { return sysclip.Unsupported }

// Memory is an in-process clipboard holding one payload.
type Memory struct {
	p Payload
}

func (m *Memory) Write(p Payload) error {
	switch v := p.(type) {
	case Document:
		m.p = Document(bytes.Clone(v))
	default:
		m.p = p
	}
	return nil
}

func (m *Memory) Text() (string, error) {
	if v, ok := m.p.(Text); ok {
		return string(v), nil
	}
	return "", ErrNoRepresentation
}

func (m *Memory) Image() (Image, error) {
	if v, ok := m.p.(Image); ok {
		return v, nil
	}
	return Image{}, ErrNoRepresentation
}

func (m *Memory) Document() ([]byte, error) {
	if v, ok := m.p.(Document); ok {
		return v, nil
	}
	return nil, ErrNoRepresentation
}
