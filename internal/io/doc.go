// Package ioutils provides file system and image processing utilities.
//
// This package contains functions for:
//   - Atomic file writing
//   - Filename sanitization for cross-platform compatibility
//   - Confining caller-supplied names to a working directory
//   - Image decoding, resizing and format conversion
//
// # File Operations
//
//	// Write data to file, creating parent directories
//	err := ioutils.WriteFile("/path/to/file.txt", []byte("content"))
//
//	// Place an untrusted name under the working directory
//	path, err := ioutils.ConfinePath(workDir, "../cover.jpg")
//
// # Filename Sanitization
//
// Use SanitizeFileName to remove invalid characters from filenames:
//
//	safe := ioutils.SanitizeFileName("Song: Part 1/2") // Returns "Song_ Part 1_2"
//
// # Image Processing
//
// The ImageService handles cover art manipulation:
//
//	svc := ioutils.NewImageService()
//
//	// Resize image to fit within 500x500
//	resized, _ := svc.ResizeImage(imageData, 500, 500)
//
//	// Convert to JPEG
//	jpeg, _ := svc.ConvertToJPEG(pngData)
package ioutils
