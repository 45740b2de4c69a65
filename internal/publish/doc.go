// Package publish uploads a consolidated dataset file to a Hugging Face Hub
// dataset repository as its train split.
package publish
