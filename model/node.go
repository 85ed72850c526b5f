// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

package model

import "github.com/castelao/icechunk/attrs"

// NodeData is the per-kind payload of a Node: either GroupData or
// ArrayData. It is a closed sum type, implemented by the two types in
// this file.
type NodeData interface {
	isNodeData()
}

// GroupData is the payload of a group node: it carries only attributes,
// which live on the enclosing Node.
type GroupData struct{}

func (GroupData) isNodeData() {}

// ArrayData is the payload of an array node.
type ArrayData struct {
	Metadata  ArrayMetadata
	Manifests []ManifestRef
}

func (ArrayData) isNodeData() {}

// Node is a single entry of a structure table.
type Node struct {
	Id   NodeId
	Path Path
	// UserAttributes is nil when the node has no attributes recorded.
	UserAttributes *attrs.Attributes
	NodeData       NodeData
}

// IsArray reports whether the node carries ArrayData.
func (n Node) IsArray() bool {
	_, ok := n.NodeData.(ArrayData)
	return ok
}

// IsGroup reports whether the node carries GroupData.
func (n Node) IsGroup() bool {
	_, ok := n.NodeData.(GroupData)
	return ok
}

// AsArray returns the node's ArrayData and true, or the zero value and
// false if the node is a group.
func (n Node) AsArray() (ArrayData, bool) {
	a, ok := n.NodeData.(ArrayData)
	return a, ok
}

// WithManifests returns a copy of n with an ArrayData payload whose
// Manifests field is replaced. It is a no-op (returns n unchanged) on a
// group node.
func (n Node) WithManifests(manifests []ManifestRef) Node {
	a, ok := n.NodeData.(ArrayData)
	if !ok {
		return n
	}
	a.Manifests = manifests
	n.NodeData = a
	return n
}

// WithMetadata returns a copy of n with an ArrayData payload whose
// Metadata field is replaced. It is a no-op on a group node.
func (n Node) WithMetadata(meta ArrayMetadata) Node {
	a, ok := n.NodeData.(ArrayData)
	if !ok {
		return n
	}
	a.Metadata = meta
	n.NodeData = a
	return n
}

// WithUserAttributes returns a copy of n with its UserAttributes field
// replaced.
func (n Node) WithUserAttributes(a *attrs.Attributes) Node {
	n.UserAttributes = a
	return n
}
