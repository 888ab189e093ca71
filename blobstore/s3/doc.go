// Package s3 implements blobstore.Store on Amazon S3.
//
// Uploads go through the transfer manager, which switches to multipart
// uploads for large artifacts.
package s3
